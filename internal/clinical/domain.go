// Package clinical serves patient records: fichas clínicas, exámenes and
// citas. Access is gated by the per-user permission rows the rbac
// package maintains.
package clinical

import (
	"time"
)

// Appointment states and their allowed transitions.
const (
	CitaAgendada   = "AGENDADA"
	CitaConfirmada = "CONFIRMADA"
	CitaCompletada = "COMPLETADA"
	CitaCancelada  = "CANCELADA"
)

// validTransitions maps each state to the states it may move to.
// Completed and cancelled appointments are terminal.
var validTransitions = map[string][]string{
	CitaAgendada:   {CitaConfirmada, CitaCancelada},
	CitaConfirmada: {CitaCompletada, CitaCancelada},
}

// CanTransition reports whether a cita may move from one state to another.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Exam states.
const (
	ExamenPendiente = "PENDIENTE"
	ExamenInformado = "INFORMADO"
)

// ExamenInput is the payload for registering a new exam.
type ExamenInput struct {
	Tipo      string     `json:"tipo"`
	Resultado string     `json:"resultado"`
	TomadoEn  *time.Time `json:"tomado_en"`
}

// FichaClinica is a patient's clinical record header.
type FichaClinica struct {
	ID            string    `json:"id"`
	PacienteID    string    `json:"paciente_id"`
	Paciente      string    `json:"paciente"`
	Rut           string    `json:"rut"`
	Diagnostico   string    `json:"diagnostico,omitempty"`
	Antecedentes  string    `json:"antecedentes,omitempty"`
	CreadoEn      time.Time `json:"creado_en"`
	ActualizadoEn time.Time `json:"actualizado_en"`
}

// Examen is one clinical exam attached to a ficha.
type Examen struct {
	ID        string     `json:"id"`
	FichaID   string     `json:"ficha_id"`
	Tipo      string     `json:"tipo"`
	Resultado string     `json:"resultado,omitempty"`
	Estado    string     `json:"estado"`
	TomadoEn  *time.Time `json:"tomado_en,omitempty"`
	CreadoEn  time.Time  `json:"creado_en"`
}

// Cita is a scheduled appointment.
type Cita struct {
	ID            string    `json:"id"`
	PacienteID    string    `json:"paciente_id"`
	Paciente      string    `json:"paciente"`
	ProfesionalID string    `json:"profesional_id"`
	Profesional   string    `json:"profesional"`
	Inicio        time.Time `json:"inicio"`
	Fin           time.Time `json:"fin"`
	Estado        string    `json:"estado"`
	Motivo        string    `json:"motivo,omitempty"`
	CreadoEn      time.Time `json:"creado_en"`
}
