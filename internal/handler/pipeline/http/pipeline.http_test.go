package http

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

type stubLatestTicks struct {
	ticks map[string]entity.PriceTick
	err   error
}

func (s *stubLatestTicks) Get(ctx context.Context, coinID string) (entity.PriceTick, bool, error) {
	if s.err != nil {
		return entity.PriceTick{}, false, s.err
	}
	tick, ok := s.ticks[coinID]
	return tick, ok, nil
}

func serve(t *testing.T, h *Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, NewPipelineHTTPHandler(nil), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHealthRejectsPost(t *testing.T) {
	rec := serve(t, NewPipelineHTTPHandler(nil), http.MethodPost, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLatestTickNotRegisteredWithoutCache(t *testing.T) {
	rec := serve(t, NewPipelineHTTPHandler(nil), http.MethodGet, "/ticks/latest?coin_id=bitcoin")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestTick(t *testing.T) {
	tick, err := entity.NewPriceTick("bitcoin", time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC), 65000.5, 3.2e10, "")
	require.NoError(t, err)
	h := NewPipelineHTTPHandler(&stubLatestTicks{ticks: map[string]entity.PriceTick{"bitcoin": tick}})

	t.Run("found", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/ticks/latest?coin_id=bitcoin")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"coin_id":"bitcoin","timestamp_utc":"2026-10-17T08:30:00Z","price_usd":65000.5,"volume_24h":32000000000,"source":"coingecko"}`,
			rec.Body.String(),
		)
	})

	t.Run("unknown coin", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/ticks/latest?coin_id=dogecoin")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing coin id", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/ticks/latest")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLatestTickStoreFailure(t *testing.T) {
	h := NewPipelineHTTPHandler(&stubLatestTicks{err: errors.New("redis: i/o timeout")})

	rec := serve(t, h, http.MethodGet, "/ticks/latest?coin_id=bitcoin")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
