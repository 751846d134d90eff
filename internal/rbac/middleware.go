package rbac

import (
	"net/http"

	"github.com/andescare/clinica/internal/platform/httpx"
	"github.com/andescare/clinica/internal/shared"
)

// RequireStaff rejects requests without an authenticated system user.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := shared.AuthFromContext(r.Context())
		if !auth.IsStaff() {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sesión requerida")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose actor does not hold the ADMIN role.
// Every admin mutation re-checks this server-side regardless of what the
// UI showed the user.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := shared.AuthFromContext(r.Context())
		if !auth.IsStaff() {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sesión requerida")
			return
		}
		if !auth.IsAdmin() {
			httpx.Problem(w, http.StatusForbidden, "Unauthorized", "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}
