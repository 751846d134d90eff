// Package staff manages system user accounts: the personas, credentials
// and role assignments behind every clinical or administrative login.
package staff

import (
	"time"

	"github.com/andescare/clinica/internal/personas"
)

// SystemUser joins a usuarios_sistema row with its persona.
type SystemUser struct {
	ID                  string           `json:"id"`
	PersonaID           string           `json:"persona_id"`
	RolID               string           `json:"rol_id"`
	Rol                 string           `json:"rol"`
	Activo              bool             `json:"activo"`
	DebeCambiarPassword bool             `json:"debe_cambiar_password"`
	UltimoAcceso        *time.Time       `json:"ultimo_acceso,omitempty"`
	CreadoEn            time.Time        `json:"creado_en"`
	ActualizadoEn       time.Time        `json:"actualizado_en"`
	Persona             personas.Persona `json:"persona"`
}

// CreateInput is the admin form for a new staff account. RutBody and
// RutDV arrive as separate fields; the service validates the pair and
// stores the combined canonical form.
type CreateInput struct {
	Name     string `json:"name" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
	RutBody  string `json:"rut_body" validate:"required"`
	RutDV    string `json:"rut_dv" validate:"required,len=1"`
	Region   *int   `json:"region,omitempty"`
	Commune  *int   `json:"commune,omitempty"`
	Address  string `json:"address,omitempty" validate:"max=255"`
	Active   bool   `json:"active"`
}

// UpdateInput edits an existing account. Password is optional; when set
// it resets the credential and forces a change on next login.
type UpdateInput struct {
	Name     string `json:"name" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
	RutBody  string `json:"rut_body" validate:"required"`
	RutDV    string `json:"rut_dv" validate:"required,len=1"`
	Region   *int   `json:"region,omitempty"`
	Commune  *int   `json:"commune,omitempty"`
	Address  string `json:"address,omitempty" validate:"max=255"`
	Active   bool   `json:"active"`
}

// ListFilters narrows the admin user listing.
type ListFilters struct {
	Query      string
	Role       string
	OnlyActive bool
	Limit      int
	Offset     int
}
