package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/sirupsen/logrus"
)

type LatestTickReader interface {
	Get(ctx context.Context, coinID string) (entity.PriceTick, bool, error)
}

type Handler struct {
	latestTicks LatestTickReader
}

// NewPipelineHTTPHandler builds the HTTP surface. latestTicks may be nil,
// in which case /ticks/latest is not registered.
func NewPipelineHTTPHandler(latestTicks LatestTickReader) *Handler {
	return &Handler{latestTicks: latestTicks}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	if h.latestTicks != nil {
		mux.HandleFunc("/ticks/latest", h.LatestTick)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) LatestTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	coinID := strings.TrimSpace(r.URL.Query().Get("coin_id"))
	if coinID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "coin_id is required"})
		return
	}

	tick, found, err := h.latestTicks.Get(r.Context(), coinID)
	if err != nil {
		logrus.WithField("coin_id", coinID).WithError(err).Error("failed to read latest tick")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "tick not found"})
		return
	}

	writeJSON(w, http.StatusOK, tick)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
