package rbac

import (
	"github.com/andescare/clinica/internal/platform/httpx"
)

// Domain errors. Wrapping the httpx sentinels keeps the HTTP mapping in
// one place while the messages stay user-facing.
var (
	ErrRoleNotFound = httpx.Wrap(httpx.ErrNotFound, "Rol no encontrado")
	ErrRoleExists   = httpx.Wrap(httpx.ErrDuplicate, "El nombre del rol ya existe")
	ErrRoleInUse    = httpx.Wrap(httpx.ErrConflict, "No se puede eliminar un rol que tiene usuarios asignados")
	ErrNoChanges    = httpx.Wrap(httpx.ErrValidation, "No se recibieron cambios")
	ErrDenied       = httpx.Wrap(httpx.ErrForbidden, "Access denied")
	ErrNoSession    = httpx.Wrap(httpx.ErrUnauthorized, "Sesión requerida")
)
