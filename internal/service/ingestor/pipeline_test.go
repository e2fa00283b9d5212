package ingestor

import (
	"context"

	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/coin-tick-pipeline/internal/service/fetcher"
	"github.com/krobus00/coin-tick-pipeline/internal/service/publisher"
	"github.com/krobus00/coin-tick-pipeline/internal/service/scheduler"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackJetStream hands every published message straight to the ingestor.
type loopbackJetStream struct {
	nats.JetStreamManager

	t        *testing.T
	ingestor *TickIngestorService
	payloads [][]byte
	acker    *fakeAcker
}

func (l *loopbackJetStream) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	l.payloads = append(l.payloads, data)
	l.ingestor.HandleMessage(context.Background(), data, l.acker)
	return &nats.PubAck{Stream: "coin_ticks", Sequence: uint64(len(l.payloads))}, nil
}

func TestPipelineEndToEnd(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"bitcoin","current_price":65000.5,"total_volume":3.2e10}]`))
	}))
	defer api.Close()

	sink := &fakeSink{}
	acker := &fakeAcker{}
	js := &loopbackJetStream{t: t, ingestor: newTestIngestor(sink, nil), acker: acker}

	before := time.Now().UTC()
	svc := scheduler.NewSchedulerService(
		fetcher.NewCoinGeckoFetcher(fetcher.CoinGeckoFetcherConfig{BaseURL: api.URL, Source: "coingecko"}),
		publisher.NewTickPublisher(js, "coin_ticks", 0),
		[]string{"bitcoin"},
		"usd",
		30*time.Second,
	)

	result, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)

	require.Len(t, js.payloads, 1)
	var message map[string]any
	require.NoError(t, json.Unmarshal(js.payloads[0], &message))
	assert.Equal(t, "bitcoin", message["coin_id"])
	assert.Equal(t, 65000.5, message["price_usd"])
	assert.Equal(t, 3.2e10, message["volume_24h"])
	assert.Equal(t, "coingecko", message["source"])

	ts, err := time.Parse(time.RFC3339Nano, message["timestamp_utc"].(string))
	require.NoError(t, err)
	assert.False(t, ts.Before(before.Truncate(time.Microsecond)))
	assert.False(t, ts.After(time.Now().UTC()))

	rows := sink.inserted()
	require.Len(t, rows, 1)
	assert.Equal(t, "bitcoin", rows[0].CoinID())
	assert.Equal(t, 65000.5, rows[0].PriceUSD())
	assert.Equal(t, 3.2e10, rows[0].Volume24h())
	assert.Equal(t, "coingecko", rows[0].Source())
	assert.True(t, rows[0].TimestampUTC().Equal(ts))

	assert.Equal(t, 1, acker.acks)
	assert.Zero(t, acker.naks)
}
