package staff

import (
	"github.com/andescare/clinica/internal/platform/httpx"
)

var (
	ErrUserNotFound = httpx.Wrap(httpx.ErrNotFound, "Usuario no encontrado")
	ErrInvalidRut   = httpx.Wrap(httpx.ErrValidation, "RUT inválido")
	ErrRutTaken     = httpx.Wrap(httpx.ErrDuplicate, "RUT ya está en uso")
	ErrEmailTaken   = httpx.Wrap(httpx.ErrDuplicate, "El email ya está en uso")
	ErrDeleteAdmin  = httpx.Wrap(httpx.ErrConflict, "No se puede eliminar a un Administrador")
	ErrSelfDelete   = httpx.Wrap(httpx.ErrConflict, "No puedes eliminar tu propia cuenta")
	ErrInvalidRole  = httpx.Wrap(httpx.ErrValidation, "Rol inválido")
)
