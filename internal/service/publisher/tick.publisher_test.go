package publisher

import (
	"context"

	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeJetStream struct {
	nats.JetStreamManager

	published  []publishedMsg
	publishErr error
	streams    map[string]*nats.StreamConfig
	updated    int
}

func (f *fakeJetStream) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}

	f.published = append(f.published, publishedMsg{subject: subj, data: data})
	return &nats.PubAck{Stream: "coin_ticks", Sequence: uint64(len(f.published))}, nil
}

func (f *fakeJetStream) StreamInfo(stream string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	cfg, ok := f.streams[stream]
	if !ok {
		return nil, nats.ErrStreamNotFound
	}
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.streams == nil {
		f.streams = map[string]*nats.StreamConfig{}
	}
	f.streams[cfg.Name] = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) UpdateStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.updated++
	f.streams[cfg.Name] = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestTickPublisherPublish(t *testing.T) {
	js := &fakeJetStream{}
	pub := NewTickPublisher(js, "coin_ticks", 0)

	fetchedAt := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)
	tick, err := entity.NewPriceTick("bitcoin", fetchedAt, 65000.5, 3.2e10, "coingecko")
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), tick))

	require.Len(t, js.published, 1)
	assert.Equal(t, "coin_ticks.tick", js.published[0].subject)
	assert.JSONEq(t,
		`{"coin_id":"bitcoin","price_usd":65000.5,"volume_24h":3.2e10,"source":"coingecko","timestamp_utc":"2026-10-17T08:30:00Z"}`,
		string(js.published[0].data),
	)

	decoded, err := entity.DecodePriceTick(js.published[0].data)
	require.NoError(t, err)
	assert.True(t, tick.Equal(decoded))
}

func TestTickPublisherPublishFailure(t *testing.T) {
	cause := errors.New("nats: timeout")
	pub := NewTickPublisher(&fakeJetStream{publishErr: cause}, "coin_ticks", 0)

	tick, err := entity.NewPriceTick("bitcoin", time.Now(), 1, 1, "")
	require.NoError(t, err)

	err = pub.Publish(context.Background(), tick)

	var transportErr *entity.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "publish", transportErr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestTickPublisherJetstreamEventInit(t *testing.T) {
	js := &fakeJetStream{}
	pub := NewTickPublisher(js, "coin_ticks", time.Hour)

	require.NoError(t, pub.JetstreamEventInit(context.Background()))
	require.Contains(t, js.streams, "coin_ticks")
	assert.Equal(t, []string{"coin_ticks.*"}, js.streams["coin_ticks"].Subjects)
	assert.Equal(t, time.Hour, js.streams["coin_ticks"].MaxAge)
	assert.Zero(t, js.updated)

	require.NoError(t, pub.JetstreamEventInit(context.Background()))
	assert.Equal(t, 1, js.updated)
}

func TestPublishedPayloadIsUTF8JSON(t *testing.T) {
	js := &fakeJetStream{}
	pub := NewTickPublisher(js, "coin_ticks", 0)

	tick, err := entity.NewPriceTick("bitcoin", time.Now(), 1, 0, "")
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), tick))

	var fields map[string]any
	require.NoError(t, json.Unmarshal(js.published[0].data, &fields))
	assert.Len(t, fields, 5)
}
