package masterdata

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/clinica/internal/platform/httpx"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/geo/regiones", h.regiones)
	r.Get("/geo/regiones/{id}/comunas", h.comunas)
}

func (h *Handler) regiones(w http.ResponseWriter, r *http.Request) {
	regions, err := h.repo.ListRegions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"regiones": regions})
}

func (h *Handler) comunas(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "región inválida")
		return
	}
	comunas, err := h.repo.ListComunas(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comunas": comunas})
}
