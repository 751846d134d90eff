package rbac

import (
	"time"

	"github.com/andescare/clinica/internal/shared"
)

// Role is a named permission grouping (ADMIN, KINESIOLOGO, ...).
type Role struct {
	ID            string    `json:"id"`
	Nombre        string    `json:"nombre"`
	Descripcion   string    `json:"descripcion"`
	Activo        bool      `json:"activo"`
	CreadoEn      time.Time `json:"creado_en"`
	ActualizadoEn time.Time `json:"actualizado_en"`
}

// RolePermission is the template row a role grants by default.
type RolePermission struct {
	RolID   string `json:"rol_id"`
	Recurso string `json:"recurso"`
	Accion  string `json:"accion"`
	Activo  bool   `json:"activo"`
}

// UserPermission is the effective per-user row access checks read.
type UserPermission struct {
	UsuarioID   string `json:"usuario_id"`
	Recurso     string `json:"recurso"`
	Accion      string `json:"accion"`
	Activo      bool   `json:"activo"`
	OtorgadoPor string `json:"otorgado_por"`
}

// MatrixChange is one edit from the admin permission matrix: a role, a
// human-readable action label and the desired state.
type MatrixChange struct {
	Role    string `json:"role" validate:"required"`
	Action  string `json:"action" validate:"required"`
	Enabled bool   `json:"enabled"`
}

// Allowed is the pure presentation-layer gate: ADMIN sees everything,
// PACIENTE sees nothing, everyone else is looked up in their fetched
// permission list. Server-side checks happen regardless.
func Allowed(rol string, perms []UserPermission, recurso, accion string) bool {
	switch rol {
	case shared.RoleAdmin:
		return true
	case shared.RolePaciente:
		return false
	}
	for _, p := range perms {
		if p.Recurso == recurso && p.Accion == accion {
			return p.Activo
		}
	}
	return false
}
