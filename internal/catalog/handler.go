package catalog

import (
	"log/slog"
	"net/http"

	"tjanster-backend/internal/transport"
)

type Handler struct {
	log *slog.Logger
}

func NewHandler(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.log.Info("services: ok", slog.Int("count", len(services)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"services": All(),
	})
}
