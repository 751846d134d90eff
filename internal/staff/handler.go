package staff

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/clinica/internal/platform/httpx"
	"github.com/andescare/clinica/internal/shared"
)

// Handler exposes the admin staff account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountAdminRoutes registers the account CRUD under the admin router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Post("/users", h.create)
	r.Get("/users/{id}", h.get)
	r.Put("/users/{id}", h.update)
	r.Delete("/users/{id}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := ListFilters{
		Query:      q.Get("q"),
		Role:       q.Get("role"),
		OnlyActive: q.Get("active") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	users, err := h.service.List(r.Context(), shared.AuthFromContext(r.Context()), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	user, err := h.service.Create(r.Context(), shared.AuthFromContext(r.Context()), in)
	if err != nil {
		h.logger.Error("create staff user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Success", "user": user})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	user, err := h.service.Update(r.Context(), shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.logger.Error("update staff user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success", "user": user})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("delete staff user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success"})
}
