package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tjanster-backend/internal/cache"
	"tjanster-backend/internal/httpx"
	"tjanster-backend/internal/middleware"
	"tjanster-backend/internal/schedule"
	"tjanster-backend/internal/transport"
)

type Handler struct {
	service *Service
	log     *slog.Logger
	cache   cache.Cache
}

func NewHandler(service *Service, log *slog.Logger, cacheStore cache.Cache) *Handler {
	return &Handler{
		service: service,
		log:     log,
		cache:   cacheStore,
	}
}

// Create is the public submission endpoint behind the booking form.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("bookings create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if details := ValidateRecord(req); details != nil {
		log.Warn("bookings create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	b, err := h.service.Create(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidDate):
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		case errors.Is(err, ErrDatePast):
			log.Warn("bookings create: date in the past", slog.String("date", req.Date))
			transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		case errors.Is(err, ErrSlotNotAllowed):
			log.Warn("bookings create: slot not allowed", slog.String("date", req.Date), slog.String("time", req.Time))
			transport.WriteError(w, http.StatusBadRequest, "slot not available", nil)
		case errors.Is(err, ErrSlotTaken):
			log.Warn("bookings create: slot taken", slog.String("date", req.Date), slog.String("time", req.Time))
			transport.WriteError(w, http.StatusConflict, "slot not available", nil)
		default:
			log.Error("bookings create: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.invalidateAvailability(r.Context(), b.Date)

	go func(created Booking) {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer notifyCancel()
		if err := h.service.NotifyReceived(notifyCtx, created); err != nil {
			h.log.Warn("bookings create: notification failed",
				slog.String("booking_id", created.ID),
				slog.String("email", created.Email),
				slog.String("error", err.Error()),
			)
		}
	}(b)

	log.Info("bookings create: ok",
		slog.String("booking_id", b.ID),
		slog.String("service_type", b.ServiceType),
		slog.String("date", b.Date),
		slog.String("time", b.Time),
	)
	transport.WriteJSON(w, http.StatusCreated, b)
}

// Get backs the public confirmation page lookup.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("bookings get: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("bookings get: not found", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
			return
		}
		log.Error("bookings get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("bookings get: ok", slog.String("booking_id", id))
	transport.WriteJSON(w, http.StatusOK, b)
}

// AdminList serves the three console views: the pending queue
// (?status=PENDING), a single date (?date=...), and otherwise an
// upcoming preview.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var (
		items []Booking
		err   error
	)
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	switch {
	case date != "":
		if _, parseErr := time.Parse("2006-01-02", date); parseErr != nil {
			log.Warn("admin bookings list: invalid date", slog.String("date", date))
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
			return
		}
		items, err = h.service.ForDate(ctx, date)
	case status == StatusPending:
		items, err = h.service.Pending(ctx)
	default:
		limit, _, limitErr := httpx.ParseLimitOffset(r.URL.Query(), 20, 200)
		if limitErr != nil {
			log.Warn("admin bookings list: invalid query", slog.String("error", limitErr.Error()))
			transport.WriteError(w, http.StatusBadRequest, limitErr.Error(), nil)
			return
		}
		items, err = h.service.Upcoming(ctx, limit)
	}
	if err != nil {
		log.Error("admin bookings list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin bookings list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"bookings": items})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin bookings approve: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, changed, err := h.service.Approve(ctx, id)
	if err != nil {
		h.writeWorkflowError(w, log, "admin bookings approve", id, err)
		return
	}

	if changed {
		h.invalidateAvailability(r.Context(), b.Date)
		go h.notify(b, "confirmation", h.service.NotifyApproved)
	}

	log.Info("admin bookings approve: ok",
		slog.String("booking_id", id),
		slog.Bool("changed", changed),
	)
	transport.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin bookings decline: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req DeclineRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin bookings decline: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, changed, err := h.service.Decline(ctx, id, req.Reason)
	if err != nil {
		if errors.Is(err, ErrEmptyReason) {
			log.Warn("admin bookings decline: empty reason", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"reason": "is required"})
			return
		}
		h.writeWorkflowError(w, log, "admin bookings decline", id, err)
		return
	}

	if changed {
		h.invalidateAvailability(r.Context(), b.Date)
		go h.notify(b, "decline", h.service.NotifyDeclined)
	}

	log.Info("admin bookings decline: ok",
		slog.String("booking_id", id),
		slog.Bool("changed", changed),
	)
	transport.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin bookings edit: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req EditRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin bookings edit: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	previous, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeWorkflowError(w, log, "admin bookings edit", id, err)
		return
	}

	b, err := h.service.Edit(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidDate):
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		case errors.Is(err, ErrSlotNotAllowed):
			log.Warn("admin bookings edit: slot not allowed", slog.String("time", req.Time))
			transport.WriteError(w, http.StatusBadRequest, "slot not available", nil)
		default:
			h.writeWorkflowError(w, log, "admin bookings edit", id, err)
		}
		return
	}

	h.invalidateAvailability(r.Context(), previous.Date)
	h.invalidateAvailability(r.Context(), b.Date)
	go h.notify(b, "change", h.service.NotifyChanged)

	log.Info("admin bookings edit: ok",
		slog.String("booking_id", id),
		slog.String("date", b.Date),
		slog.String("time", b.Time),
	)
	transport.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin bookings delete: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	previous, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeWorkflowError(w, log, "admin bookings delete", id, err)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeWorkflowError(w, log, "admin bookings delete", id, err)
		return
	}

	h.invalidateAvailability(r.Context(), previous.Date)

	log.Info("admin bookings delete: ok", slog.String("booking_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, log *slog.Logger, op, id string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn(op+": not found", slog.String("booking_id", id))
		transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
	case errors.Is(err, ErrTerminalStatus):
		log.Warn(op+": already resolved", slog.String("booking_id", id))
		transport.WriteError(w, http.StatusConflict, "booking already resolved", nil)
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) notify(b Booking, kind string, send func(context.Context, Booking) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := send(ctx, b); err != nil {
		h.log.Warn("bookings email: send failed",
			slog.String("booking_id", b.ID),
			slog.String("kind", kind),
			slog.String("email", b.Email),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handler) invalidateAvailability(ctx context.Context, date string) {
	if h.cache == nil || date == "" {
		return
	}
	_ = h.cache.DeletePrefix(ctx, "availability:"+date+":")
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
