package fetcher

import (
	"context"

	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *CoinGeckoFetcher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := NewCoinGeckoFetcher(CoinGeckoFetcherConfig{BaseURL: server.URL, Source: "coingecko"})
	f.now = func() time.Time { return fixedNow }
	return f
}

func TestFetchBuildsBatchedRequest(t *testing.T) {
	var calls int
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_vol"))
		assert.Equal(t, "true", r.URL.Query().Get("include_market_cap"))
		_, _ = w.Write([]byte(`[]`))
	})

	ticks, err := f.Fetch(context.Background(), []string{"ethereum", "bitcoin", "ethereum"}, "usd")
	require.NoError(t, err)
	assert.Empty(t, ticks)
	assert.Equal(t, 1, calls)
}

func TestFetchMapsEntries(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","current_price":65000.5,"total_volume":3.2e10},
			{"id":"ethereum","current_price":2500.25,"total_volume":1.5e10}
		]`))
	})

	ticks, err := f.Fetch(context.Background(), []string{"bitcoin", "ethereum"}, "usd")
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, "bitcoin", ticks[0].CoinID())
	assert.Equal(t, 65000.5, ticks[0].PriceUSD())
	assert.Equal(t, 3.2e10, ticks[0].Volume24h())
	assert.Equal(t, "coingecko", ticks[0].Source())

	assert.Equal(t, "ethereum", ticks[1].CoinID())
	assert.Equal(t, 2500.25, ticks[1].PriceUSD())
	assert.Equal(t, 1.5e10, ticks[1].Volume24h())

	for _, tick := range ticks {
		assert.True(t, tick.TimestampUTC().Equal(fixedNow))
	}
}

func TestFetchSkipsBadEntries(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","total_volume":3.2e10},
			{"id":"ethereum","current_price":-1,"total_volume":1},
			{"id":"tether","current_price":"one","total_volume":1},
			{"id":"solana","current_price":150,"total_volume":1e8},
			{"id":"cardano","current_price":0.35}
		]`))
	})

	ticks, err := f.Fetch(context.Background(), []string{"bitcoin", "ethereum", "tether", "solana", "cardano"}, "usd")
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, "solana", ticks[0].CoinID())
	assert.Equal(t, "cardano", ticks[1].CoinID())
	assert.Zero(t, ticks[1].Volume24h())
}

func TestFetchNonSuccessStatus(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	})

	_, err := f.Fetch(context.Background(), []string{"bitcoin"}, "usd")

	var transportErr *entity.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "fetch", transportErr.Op)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchUndecodableBody(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})

	_, err := f.Fetch(context.Background(), []string{"bitcoin"}, "usd")

	var transportErr *entity.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	f := NewCoinGeckoFetcher(CoinGeckoFetcherConfig{BaseURL: server.URL})
	_, err := f.Fetch(context.Background(), []string{"bitcoin"}, "usd")

	var transportErr *entity.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestFetchWithoutCoinIDs(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	ticks, err := f.Fetch(context.Background(), []string{" "}, "usd")
	require.NoError(t, err)
	assert.Nil(t, ticks)
}
