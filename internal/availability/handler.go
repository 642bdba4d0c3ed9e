package availability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tjanster-backend/internal/cache"
	"tjanster-backend/internal/catalog"
	"tjanster-backend/internal/httpx"
	"tjanster-backend/internal/middleware"
	"tjanster-backend/internal/schedule"
	"tjanster-backend/internal/transport"
	"tjanster-backend/internal/validation"
)

const maxRangeDays = 62

type slotsQuery struct {
	Date    string `json:"date" validate:"required,date"`
	Service string `json:"service" validate:"required"`
}

type calendarQuery struct {
	From string `json:"from" validate:"required,date"`
	To   string `json:"to" validate:"required,date"`
}

type slotsResponse struct {
	Date        string   `json:"date"`
	ServiceType string   `json:"service_type"`
	Timezone    string   `json:"timezone"`
	Slots       []string `json:"slots"`
	Degraded    bool     `json:"degraded,omitempty"`
}

type Handler struct {
	service  *Service
	log      *slog.Logger
	cache    cache.Cache
	val      *validation.Validator
	timezone string
	cacheTTL time.Duration
}

func NewHandler(service *Service, log *slog.Logger, cacheStore cache.Cache, val *validation.Validator, timezone string, cacheTTL time.Duration) *Handler {
	return &Handler{
		service:  service,
		log:      log,
		cache:    cacheStore,
		val:      val,
		timezone: timezone,
		cacheTTL: cacheTTL,
	}
}

// Slots serves the booking form's free-slot lookup. Responses are cached
// per date and service; every write path invalidates by the same prefix.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	q := slotsQuery{
		Date:    strings.TrimSpace(r.URL.Query().Get("date")),
		Service: strings.TrimSpace(r.URL.Query().Get("service")),
	}
	if err := h.val.Struct(q); err != nil {
		log.Warn("availability slots: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}
	if !catalog.IsValid(q.Service) {
		log.Warn("availability slots: unknown service", slog.String("service", q.Service))
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"service": "unknown service"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := "availability:" + q.Date + ":" + q.Service
	if h.cache != nil {
		if payload, ok, err := h.cache.Get(ctx, key); err == nil && ok {
			log.Info("availability slots: cache hit", slog.String("date", q.Date))
			transport.WriteCached(w, http.StatusOK, payload)
			return
		}
	}

	slots, degraded, err := h.service.Slots(ctx, q.Date, q.Service)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidDate) {
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
			return
		}
		log.Error("availability slots: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	resp := slotsResponse{
		Date:        q.Date,
		ServiceType: q.Service,
		Timezone:    h.timezone,
		Slots:       slots,
		Degraded:    degraded,
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error("availability slots: encode error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	// Degraded answers are transient. Caching one would pin an empty day.
	if h.cache != nil && !degraded {
		if err := h.cache.Set(ctx, key, payload, h.cacheTTL); err != nil {
			log.Warn("availability slots: cache write failed", slog.String("error", err.Error()))
		}
	}

	log.Info("availability slots: ok",
		slog.String("date", q.Date),
		slog.String("service", q.Service),
		slog.Int("free", len(slots)),
		slog.Bool("degraded", degraded),
	)
	transport.WriteCached(w, http.StatusOK, payload)
}

// Calendar serves the admin month view.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	q := calendarQuery{
		From: strings.TrimSpace(r.URL.Query().Get("from")),
		To:   strings.TrimSpace(r.URL.Query().Get("to")),
	}
	if err := h.val.Struct(q); err != nil {
		log.Warn("availability calendar: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	from, _ := time.Parse("2006-01-02", q.From)
	to, _ := time.Parse("2006-01-02", q.To)
	if to.Before(from) {
		log.Warn("availability calendar: inverted range")
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"to": "must not precede from"})
		return
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		log.Warn("availability calendar: range too wide")
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"to": "range too wide"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	days, err := h.service.Calendar(ctx, q.From, q.To)
	if err != nil {
		log.Error("availability calendar: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("availability calendar: ok",
		slog.String("from", q.From),
		slog.String("to", q.To),
		slog.Int("days", len(days)),
	)
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"days": days})
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
