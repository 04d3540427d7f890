package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/internal/detector"
	"github.com/Alias1177/InsiderScan/models"
)

// Pinger checks a dependency's health
type Pinger interface {
	Ping(ctx context.Context) error
}

// CycleRunner runs one detection cycle
type CycleRunner interface {
	Run(ctx context.Context, cycleTimestamp time.Time) ([]models.AnomalyRecord, detector.CycleSummary, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db       Pinger
	records  models.RecordReader
	runner   CycleRunner
	notifier models.Notifier
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger

	// one cycle at a time
	running sync.Mutex
}

// Deps groups what the handlers need; Notifier may be nil
type Deps struct {
	DB       Pinger
	Records  models.RecordReader
	Runner   CycleRunner
	Notifier models.Notifier
	Location *time.Location
}

// NewHandler creates a new handler with dependencies
func NewHandler(deps Deps) *Handler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Handler{
		db:       deps.DB,
		records:  deps.Records,
		runner:   deps.Runner,
		notifier: deps.Notifier,
		location: deps.Location,
		now:      time.Now,
		logger:   log.With().Str("component", "http").Logger(),
	}
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Check database connectivity
	if err := h.db.Ping(ctx); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
		"service":   "insiderscan",
	})
}

// GetAnomalies lists stored records
// Query params: date (YYYY-MM-DD, default today), min_score (default 0)
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	date := models.TradingDate(h.now(), h.location)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	minScore := 0.0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "min_score must be a non-negative number", nil)
			return
		}
		minScore = parsed
	}

	records, err := h.records.ListAnomalyRecords(ctx, date, minScore)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve anomalies", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"event_date": date.Format("2006-01-02"),
		"min_score":  minScore,
		"count":      len(records),
		"records":    records,
	})
}

// RunCycle runs a detection cycle now
// Query params: as_of (RFC3339, default now), notify (bool)
func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	asOf := h.now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "as_of must be RFC3339", nil)
			return
		}
		asOf = parsed
	}
	notify, _ := strconv.ParseBool(r.URL.Query().Get("notify"))

	if !h.running.TryLock() {
		h.respondError(w, http.StatusConflict, "a detection cycle is already running", nil)
		return
	}
	defer h.running.Unlock()

	records, summary, err := h.runner.Run(r.Context(), asOf)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, detector.ErrNoSymbolsProcessed) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.Error().Err(err).Str("cycle_id", summary.CycleID.String()).Msg("Detection cycle failed")
		respondJSON(w, status, map[string]interface{}{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	notified := false
	if notify && h.notifier != nil {
		if err := h.notifier.Notify(r.Context(), records); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send alerts")
		} else {
			notified = true
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary":  summary,
		"records":  len(records),
		"notified": notified,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.logger.Error().Err(err).Int("status", status).Msg(message)
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
