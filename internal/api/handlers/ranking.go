package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/qlab/tickscan/internal/scoring"
	"github.com/qlab/tickscan/internal/store"
	"github.com/qlab/tickscan/pkg/logger"
)

// RankingHandler serves persisted ranking snapshots.
type RankingHandler struct {
	rankings *store.Rankings
	logger   *logger.Logger
}

// NewRankingHandler creates a new ranking handler. rankings may be nil when
// the database is disabled; snapshot endpoints then return 503.
func NewRankingHandler(rankings *store.Rankings, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		rankings: rankings,
		logger:   log,
	}
}

// GetLatest returns the most recent ranking snapshot.
// GET /api/ranking/latest
func (h *RankingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if h.rankings == nil {
		respondError(w, http.StatusServiceUnavailable, "ranking storage is disabled")
		return
	}

	day, err := h.rankings.LatestDay(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no ranking snapshots stored")
			return
		}
		h.logger.WithError(err).Error("Failed to resolve latest ranking day")
		respondError(w, http.StatusInternalServerError, "failed to load ranking")
		return
	}

	h.serveSnapshot(w, r, day)
}

// GetByDate returns the ranking snapshot for a given trading day.
// GET /api/ranking/{date} (YYYY-MM-DD)
func (h *RankingHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date format (expected YYYY-MM-DD)")
		return
	}

	if h.rankings == nil {
		respondError(w, http.StatusServiceUnavailable, "ranking storage is disabled")
		return
	}

	h.serveSnapshot(w, r, day)
}

func (h *RankingHandler) serveSnapshot(w http.ResponseWriter, r *http.Request, day time.Time) {
	snapshot, err := h.rankings.LoadSnapshot(r.Context(), day)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no ranking snapshot for "+day.Format("2006-01-02"))
			return
		}
		h.logger.WithError(err).Error("Failed to load ranking snapshot")
		respondError(w, http.StatusInternalServerError, "failed to load ranking")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// GetPresets lists the scoring model versions available for ranking runs.
// GET /api/presets
func (h *RankingHandler) GetPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"default":  scoring.DefaultVersion,
		"versions": scoring.Versions(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
