package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/clinica/internal/platform/httpx"
)

// Handler exposes the audit timeline to the admin panel.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes. Admin-only gating happens in the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
	r.Get("/export", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Timeline(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Export(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="auditoria.csv"`)
	if err := WriteCSV(w, rows); err != nil {
		h.logger.Error("audit export write", slog.Any("error", err))
	}
}

func filtersFromQuery(r *http.Request) TimelineFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	filters := TimelineFilters{
		Actor:    q.Get("actor"),
		Accion:   q.Get("accion"),
		Page:     page,
		PageSize: pageSize,
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filters.From = from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filters.To = to
	}
	return filters
}
