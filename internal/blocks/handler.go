package blocks

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
	"tjanster-backend/internal/transport"
	"tjanster-backend/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
	cache   cache.Cache
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, cacheStore cache.Cache) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
		cache:   cacheStore,
	}
}

type listQuery struct {
	From string `json:"from" validate:"required,date"`
	To   string `json:"to" validate:"required,date"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin blocks create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin blocks create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	block, err := h.service.Create(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRange):
			log.Warn("admin blocks create: invalid range", slog.String("start", req.StartTime), slog.String("end", req.EndTime))
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"end_time": "after_start"})
		case errors.Is(err, ErrNotGridTime):
			log.Warn("admin blocks create: off-grid time")
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"start_time": "slot30"})
		case errors.Is(err, ErrInvalidWindow):
			log.Warn("admin blocks create: invalid recurrence window")
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"end_date": "after_date"})
		default:
			log.Error("admin blocks create: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.invalidateAvailability(r.Context(), block)

	log.Info("admin blocks create: ok",
		slog.String("block_id", block.ID),
		slog.String("date", block.Date),
		slog.String("type", block.Kind),
	)
	transport.WriteJSON(w, http.StatusCreated, block)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	q := listQuery{
		From: strings.TrimSpace(r.URL.Query().Get("from")),
		To:   strings.TrimSpace(r.URL.Query().Get("to")),
	}
	if err := h.val.Struct(q); err != nil {
		log.Warn("admin blocks list: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.service.List(ctx, q.From, q.To)
	if err != nil {
		log.Error("admin blocks list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin blocks list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"blocks": items})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin blocks update: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin blocks update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin blocks update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	block, err := h.service.Update(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("admin blocks update: not found", slog.String("block_id", id))
			transport.WriteError(w, http.StatusNotFound, "block not found", nil)
		case errors.Is(err, ErrInvalidRange):
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"end_time": "after_start"})
		case errors.Is(err, ErrNotGridTime):
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"start_time": "slot30"})
		default:
			log.Error("admin blocks update: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.invalidateAvailability(r.Context(), block)

	log.Info("admin blocks update: ok", slog.String("block_id", id))
	transport.WriteJSON(w, http.StatusOK, block)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin blocks delete: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	block, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin blocks delete: not found", slog.String("block_id", id))
			transport.WriteError(w, http.StatusNotFound, "block not found", nil)
			return
		}
		log.Error("admin blocks delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin blocks delete: not found", slog.String("block_id", id))
			transport.WriteError(w, http.StatusNotFound, "block not found", nil)
			return
		}
		log.Error("admin blocks delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	h.invalidateAvailability(r.Context(), block)

	log.Info("admin blocks delete: ok", slog.String("block_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// invalidateAvailability drops cached availability for every date the
// block can touch. Recurring blocks cover a window, so the whole
// availability prefix goes.
func (h *Handler) invalidateAvailability(ctx context.Context, block Block) {
	if h.cache == nil {
		return
	}
	if block.Kind == KindRecurring {
		_ = h.cache.DeletePrefix(ctx, "availability:")
		return
	}
	_ = h.cache.DeletePrefix(ctx, "availability:"+block.Date+":")
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
