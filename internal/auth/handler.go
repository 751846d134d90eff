package auth

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/clinica/internal/platform/httpx"
	"github.com/andescare/clinica/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
}

func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions, csrf: csrf}
}

// MountRoutes registers the auth endpoints. Login gets its own rate
// limiter on top of the global one; pass nil to skip it.
func (h *Handler) MountRoutes(r chi.Router, loginLimiter func(http.Handler) http.Handler) {
	if loginLimiter != nil {
		r.With(loginLimiter).Post("/login", h.login)
	} else {
		r.Post("/login", h.login)
	}
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	r.Post("/change-password", h.changePassword)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}

	login, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(login.UsuarioID)
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Success",
		"user": map[string]any{
			"id":                    login.UsuarioID,
			"nombre":                login.Nombre,
			"email":                 login.Email,
			"rol":                   login.Rol,
			"debe_cambiar_password": login.DebeCambiarPassword,
		},
		"csrf_token": token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), shared.AuthFromContext(r.Context()), clientIP(r), r.UserAgent())
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	auth := shared.AuthFromContext(r.Context())
	if auth == nil {
		httpx.RespondError(w, ErrNoSession)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":    auth.UsuarioID,
		"email": auth.Email,
		"rol":   auth.Rol,
	})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cuerpo JSON inválido")
		return
	}
	err := h.service.ChangePassword(r.Context(), shared.AuthFromContext(r.Context()), req.Current, req.New)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Success"})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
