package publisher

import (
	"context"
	"time"

	"github.com/krobus00/coin-tick-pipeline/internal/constant"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/krobus00/coin-tick-pipeline/internal/infrastructure"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultStreamMaxAge = 24 * time.Hour

type jetStream interface {
	nats.JetStreamManager
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

var _ entity.Publisher = (*TickPublisher)(nil)

// TickPublisher sends one JetStream message per tick and waits for the
// stream to acknowledge it. It never retries on its own.
type TickPublisher struct {
	js           jetStream
	topic        string
	streamMaxAge time.Duration
}

func NewTickPublisher(js jetStream, topic string, streamMaxAge time.Duration) *TickPublisher {
	if streamMaxAge <= 0 {
		streamMaxAge = defaultStreamMaxAge
	}

	return &TickPublisher{
		js:           js,
		topic:        topic,
		streamMaxAge: streamMaxAge,
	}
}

func (p *TickPublisher) JetstreamEventInit(ctx context.Context) error {
	return infrastructure.EnsureStream(ctx, p.js, &nats.StreamConfig{
		Name:      p.topic,
		Subjects:  []string{constant.GetTickStreamSubjectAll(p.topic)},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    p.streamMaxAge,
		Replicas:  1,
	})
}

func (p *TickPublisher) Publish(ctx context.Context, tick entity.PriceTick) error {
	subject := constant.GetTickStreamSubject(p.topic)

	ack, err := util.PublishEvent(p.js, subject, tick,
		nats.Context(ctx),
		nats.MsgId(constant.GetTickMsgID(tick.CoinID(), tick.TimestampISO())),
	)
	if err != nil {
		return &entity.TransportError{Op: "publish", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"coin_id":   tick.CoinID(),
		"subject":   subject,
		"stream":    ack.Stream,
		"sequence":  ack.Sequence,
		"duplicate": ack.Duplicate,
	}).Info("published tick")

	return nil
}
