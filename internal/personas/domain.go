// Package personas holds the shared person registry. Every human in the
// system, staff or patient, is a row in personas; role-specific tables
// (usuarios_sistema, fichas_clinicas) hang off it by persona_id.
package personas

import "time"

type Persona struct {
	ID            string     `json:"id"`
	Nombres       string     `json:"nombres"`
	Apellidos     string     `json:"apellidos"`
	Rut           string     `json:"rut"`
	Email         string     `json:"email"`
	Telefono      string     `json:"telefono,omitempty"`
	Direccion     string     `json:"direccion,omitempty"`
	ComunaID      *int       `json:"comuna_id,omitempty"`
	RegionID      *int       `json:"region_id,omitempty"`
	FechaNac      *time.Time `json:"fecha_nacimiento,omitempty"`
	Activo        bool       `json:"activo"`
	CreadoEn      time.Time  `json:"creado_en"`
	ActualizadoEn time.Time  `json:"actualizado_en"`
}

// NombreCompleto joins first and last names for display and audit detail.
func (p Persona) NombreCompleto() string {
	if p.Apellidos == "" {
		return p.Nombres
	}
	return p.Nombres + " " + p.Apellidos
}
