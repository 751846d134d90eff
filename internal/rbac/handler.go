package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/andescare/clinica/internal/platform/httpx"
	"github.com/andescare/clinica/internal/shared"
)

// Handler exposes role and permission management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountAdminRoutes registers the admin-only role/permission routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Post("/roles", h.createRole)
	r.Put("/roles/{id}", h.updateRole)
	r.Delete("/roles/{id}", h.deleteRole)
	r.Put("/permissions", h.updateMatrix)
	r.Post("/permissions/seed", h.seedDefaults)
}

// MountSelfRoutes registers routes available to any authenticated staff user.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/permissions", h.myPermissions)
}

type roleRequest struct {
	Nombre      string `json:"nombre" validate:"required,min=3,max=50"`
	Descripcion string `json:"descripcion" validate:"max=255"`
	Activo      *bool  `json:"activo"`
}

type matrixRequest struct {
	Changes []MatrixChange `json:"changes" validate:"required,dive"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	role, err := h.service.CreateRole(r.Context(), shared.AuthFromContext(r.Context()), req.Nombre, req.Descripcion)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Success", "role": role})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	activo := true
	if req.Activo != nil {
		activo = *req.Activo
	}
	role, err := h.service.UpdateRole(r.Context(), shared.AuthFromContext(r.Context()),
		chi.URLParam(r, "id"), req.Nombre, req.Descripcion, activo)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success", "role": role})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteRole(r.Context(), shared.AuthFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success"})
}

func (h *Handler) updateMatrix(w http.ResponseWriter, r *http.Request) {
	var req matrixRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	fanout, err := h.service.UpdateMatrix(r.Context(), shared.AuthFromContext(r.Context()), req.Changes)
	if err != nil {
		h.logger.Error("update permission matrix", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success", "usuarios_afectados": fanout})
}

func (h *Handler) seedDefaults(w http.ResponseWriter, r *http.Request) {
	fanout, err := h.service.SeedDefaults(r.Context(), shared.AuthFromContext(r.Context()))
	if err != nil {
		h.logger.Error("seed permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success", "usuarios_afectados": fanout})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.MyPermissions(r.Context(), shared.AuthFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func validationDetail(err error) string {
	var issues []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			issues = append(issues, fe.Field()+" "+fe.Tag())
		}
	}
	if len(issues) == 0 {
		return "Datos inválidos"
	}
	return "Datos inválidos: " + strings.Join(issues, ", ")
}
