package shared

import "context"

// Role names with special authorization semantics.
const (
	RoleAdmin    = "ADMIN"
	RolePaciente = "PACIENTE"
)

// AuthContext describes the verified actor behind a request. It is built
// once per request by the auth middleware; handlers and services read it
// instead of digging into the session themselves.
type AuthContext struct {
	UsuarioID string
	PersonaID string
	Email     string
	Rol       string
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Rol == RoleAdmin
}

// IsStaff reports whether the actor has a system user record at all.
func (a *AuthContext) IsStaff() bool {
	return a != nil && a.UsuarioID != ""
}

type authContextKey struct{}

// ContextWithAuth stores the auth context in ctx.
func ContextWithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext extracts the auth context, nil when unauthenticated.
func AuthFromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}
