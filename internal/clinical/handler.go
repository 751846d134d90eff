package clinical

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/clinica/internal/platform/httpx"
	"github.com/andescare/clinica/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the clinical endpoints for authenticated staff.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pacientes/{id}/ficha", h.ficha)
	r.Post("/pacientes/{id}/examenes", h.registerExamen)
	r.Get("/citas", h.agenda)
	r.Put("/citas/{id}/estado", h.changeEstado)
}

func (h *Handler) ficha(w http.ResponseWriter, r *http.Request) {
	ficha, examenes, err := h.service.Ficha(r.Context(),
		shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ficha": ficha, "examenes": examenes})
}

func (h *Handler) registerExamen(w http.ResponseWriter, r *http.Request) {
	var in ExamenInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	examen, err := h.service.RegisterExamen(r.Context(),
		shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.logger.Error("register examen", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Success", "examen": examen})
}

func (h *Handler) agenda(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		from, _ = time.Parse(time.RFC3339, v)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, _ = time.Parse(time.RFC3339, v)
	}
	citas, err := h.service.Agenda(r.Context(), shared.AuthFromContext(r.Context()), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"citas": citas})
}

type estadoRequest struct {
	Estado string `json:"estado"`
}

func (h *Handler) changeEstado(w http.ResponseWriter, r *http.Request) {
	var req estadoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	cita, err := h.service.ChangeCitaEstado(r.Context(),
		shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"), req.Estado)
	if err != nil {
		h.logger.Error("change cita estado", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success", "cita": cita})
}
