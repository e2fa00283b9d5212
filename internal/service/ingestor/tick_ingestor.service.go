package ingestor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/krobus00/coin-tick-pipeline/internal/constant"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxDeliver     = 5
	defaultAckWait        = 30 * time.Second
	defaultHandlerTimeout = 10 * time.Second
)

type TickSink interface {
	Insert(ctx context.Context, tick entity.PriceTick) []error
}

type LatestTickCache interface {
	Save(ctx context.Context, tick entity.PriceTick) (bool, error)
}

// Acknowledger is the ack side of a delivered message. *nats.Msg satisfies it.
type Acknowledger interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

type MessageOutcome string

const (
	OutcomeAcknowledged MessageOutcome = "acknowledged"
	OutcomeRejected     MessageOutcome = "rejected"
)

type queueSubscriber interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
}

type TickIngestorConfig struct {
	Topic          string
	SubscriptionID string
	MaxDeliver     int
	AckWait        time.Duration
	HandlerTimeout time.Duration
}

var _ entity.Subscriber = (*TickIngestorService)(nil)

// TickIngestorService consumes ticks from the durable subscription and
// appends them to the table store with at-least-once semantics.
type TickIngestorService struct {
	js     queueSubscriber
	sink   TickSink
	cache  LatestTickCache
	config TickIngestorConfig

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewTickIngestorService builds the ingestor. cache may be nil.
func NewTickIngestorService(js queueSubscriber, sink TickSink, cache LatestTickCache, cfg TickIngestorConfig) *TickIngestorService {
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = defaultMaxDeliver
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = defaultAckWait
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaultHandlerTimeout
	}

	return &TickIngestorService{
		js:     js,
		sink:   sink,
		cache:  cache,
		config: cfg,
	}
}

// JetstreamEventSubscribe binds the durable queue consumer. Deliveries are
// dispatched on the subscription's own goroutine and buffered by the client
// meanwhile, so a slow insert never blocks reception or the caller.
func (s *TickIngestorService) JetstreamEventSubscribe(ctx context.Context) error {
	subject := constant.GetTickStreamSubject(s.config.Topic)
	// in-flight inserts finish during drain even after shutdown cancels ctx
	handlerCtx := context.WithoutCancel(ctx)

	sub, err := s.js.QueueSubscribe(
		subject,
		s.config.SubscriptionID,
		func(msg *nats.Msg) {
			s.HandleMessage(handlerCtx, msg.Data, msg)
		},
		nats.Durable(s.config.SubscriptionID),
		nats.BindStream(s.config.Topic),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(s.config.AckWait),
		nats.MaxDeliver(s.config.MaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return &entity.TransportError{Op: "subscribe", Err: err}
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"subject":         subject,
		"subscription_id": s.config.SubscriptionID,
		"max_deliver":     s.config.MaxDeliver,
	}).Info("listening for ticks")

	return nil
}

// HandleMessage drives one delivery through decode, validation and insert.
// The message is acked only after the sink stored the row; every failure
// naks it so the broker redelivers.
func (s *TickIngestorService) HandleMessage(ctx context.Context, data []byte, acker Acknowledger) MessageOutcome {
	logger := logrus.WithField("payload", string(data))

	err := util.ProcessWithTimeout(ctx, s.config.HandlerTimeout, data, s.ingest)
	if err != nil {
		logger.WithError(err).Error("failed to process tick message")
		if nakErr := acker.Nak(); nakErr != nil {
			logger.WithError(nakErr).Error("failed to nak message")
		}
		return OutcomeRejected
	}

	if err := acker.Ack(); err != nil {
		// the row is stored, a redelivery only adds a tolerated duplicate
		logger.WithError(err).Error("failed to acknowledge message")
		return OutcomeRejected
	}

	logger.Debug("message acknowledged")
	return OutcomeAcknowledged
}

func (s *TickIngestorService) ingest(ctx context.Context, data []byte) error {
	tick, err := entity.DecodePriceTick(data)
	if err != nil {
		return err
	}

	if rowErrs := s.sink.Insert(ctx, tick); len(rowErrs) > 0 {
		return fmt.Errorf("insert tick %s: %w", tick.CoinID(), errors.Join(rowErrs...))
	}

	logrus.WithFields(logrus.Fields{
		"coin_id":       tick.CoinID(),
		"timestamp_utc": tick.TimestampISO(),
	}).Info("tick ingested")

	if s.cache != nil {
		if _, err := s.cache.Save(ctx, tick); err != nil {
			logrus.WithField("coin_id", tick.CoinID()).WithError(err).Warn("failed to update latest tick cache")
		}
	}

	return nil
}

// Close drains the subscription so in-flight handlers finish before the
// connection goes away.
func (s *TickIngestorService) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}

	return sub.Drain()
}
