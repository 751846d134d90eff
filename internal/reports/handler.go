package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/clinica/internal/platform/httpx"
	"github.com/andescare/clinica/internal/shared"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/kpis", h.kpis)
}

func (h *Handler) kpis(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.KPIs(r.Context(), shared.AuthFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}
