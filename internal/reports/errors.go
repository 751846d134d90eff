package reports

import (
	"github.com/andescare/clinica/internal/platform/httpx"
)

var (
	ErrNoPermission   = httpx.Wrap(httpx.ErrForbidden, "Access denied")
	ErrSessionMissing = httpx.Wrap(httpx.ErrUnauthorized, "Sesión requerida")
)
