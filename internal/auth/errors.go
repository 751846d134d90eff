package auth

import (
	"github.com/andescare/clinica/internal/platform/httpx"
)

var (
	ErrInvalidCredentials = httpx.Wrap(httpx.ErrUnauthorized, "Credenciales inválidas")
	ErrAccountLocked      = httpx.Wrap(httpx.ErrUnauthorized, "Cuenta bloqueada temporalmente por intentos fallidos")
	ErrAccountInactive    = httpx.Wrap(httpx.ErrUnauthorized, "La cuenta está desactivada")
	ErrWrongPassword      = httpx.Wrap(httpx.ErrValidation, "La contraseña actual no es correcta")
	ErrWeakPassword       = httpx.Wrap(httpx.ErrValidation, "La nueva contraseña debe tener al menos 8 caracteres")
	ErrNoSession          = httpx.Wrap(httpx.ErrUnauthorized, "Sesión requerida")
)
