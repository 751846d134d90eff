package clinical

import (
	"github.com/andescare/clinica/internal/platform/httpx"
)

var (
	ErrFichaNotFound  = httpx.Wrap(httpx.ErrNotFound, "Ficha clínica no encontrada")
	ErrCitaNotFound   = httpx.Wrap(httpx.ErrNotFound, "Cita no encontrada")
	ErrBadTransition  = httpx.Wrap(httpx.ErrConflict, "Transición de estado no permitida")
	ErrUnknownState   = httpx.Wrap(httpx.ErrValidation, "Estado de cita desconocido")
	ErrExamenSinTipo  = httpx.Wrap(httpx.ErrValidation, "El tipo de examen es obligatorio")
	ErrNoPermission   = httpx.Wrap(httpx.ErrForbidden, "Access denied")
	ErrSessionMissing = httpx.Wrap(httpx.ErrUnauthorized, "Sesión requerida")
)
