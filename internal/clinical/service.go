package clinical

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/shared"
)

const (
	AccionVerFicha        = "VER_FICHA"
	AccionCambiarEstado   = "CAMBIAR_ESTADO_CITA"
	AccionRegistrarExamen = "REGISTRAR_EXAMEN"
)

// PermissionLookup fetches the caller's effective permissions. Satisfied
// by the rbac repository.
type PermissionLookup interface {
	ListUserPermissions(ctx context.Context, usuarioID string) ([]rbac.UserPermission, error)
}

type Service struct {
	repo   Repository
	perms  PermissionLookup
	audit  audit.Recorder
	logger *slog.Logger
}

func NewService(repo Repository, perms PermissionLookup, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, perms: perms, audit: recorder, logger: logger}
}

// Ficha returns a patient's clinical record with its exams. Requires the
// Pacientes permission.
func (s *Service) Ficha(ctx context.Context, auth *shared.AuthContext, pacienteID string) (FichaClinica, []Examen, error) {
	if err := s.require(ctx, auth, "Pacientes"); err != nil {
		return FichaClinica{}, nil, err
	}
	ficha, err := s.repo.FichaByPaciente(ctx, pacienteID)
	if err != nil {
		return FichaClinica{}, nil, err
	}
	examenes, err := s.repo.ExamenesByFicha(ctx, ficha.ID)
	if err != nil {
		return FichaClinica{}, nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionVerFicha,
		Recurso:   "fichas_clinicas",
		RecursoID: ficha.ID,
		Resultado: audit.ResultSuccess,
	})
	return ficha, examenes, nil
}

// Agenda lists appointments in a window. Requires the Agendamiento
// permission. A zero window defaults to today.
func (s *Service) Agenda(ctx context.Context, auth *shared.AuthContext, from, to time.Time) ([]Cita, error) {
	if err := s.require(ctx, auth, "Agendamiento"); err != nil {
		return nil, err
	}
	if from.IsZero() {
		now := time.Now()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	if to.IsZero() || !to.After(from) {
		to = from.Add(24 * time.Hour)
	}
	citas, err := s.repo.CitasBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if citas == nil {
		citas = []Cita{}
	}
	return citas, nil
}

// RegisterExamen attaches a new exam to the patient's ficha. Exams enter
// PENDIENTE unless a result is supplied with them.
func (s *Service) RegisterExamen(ctx context.Context, auth *shared.AuthContext, pacienteID string, in ExamenInput) (Examen, error) {
	if err := s.require(ctx, auth, "Pacientes"); err != nil {
		return Examen{}, err
	}
	in.Tipo = strings.TrimSpace(in.Tipo)
	if in.Tipo == "" {
		return Examen{}, ErrExamenSinTipo
	}

	ficha, err := s.repo.FichaByPaciente(ctx, pacienteID)
	if err != nil {
		return Examen{}, err
	}

	examen := Examen{
		FichaID:   ficha.ID,
		Tipo:      in.Tipo,
		Resultado: strings.TrimSpace(in.Resultado),
		Estado:    ExamenPendiente,
		TomadoEn:  in.TomadoEn,
	}
	if examen.Resultado != "" {
		examen.Estado = ExamenInformado
	}
	if err := s.repo.AddExamen(ctx, &examen); err != nil {
		return Examen{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionRegistrarExamen,
		Recurso:   "examenes",
		RecursoID: examen.ID,
		Detalle: map[string]any{
			"Tipo":   examen.Tipo,
			"Estado": examen.Estado,
		},
		Resultado: audit.ResultSuccess,
	})
	return examen, nil
}

// ChangeCitaEstado moves an appointment through its state machine.
func (s *Service) ChangeCitaEstado(ctx context.Context, auth *shared.AuthContext, citaID, estado string) (Cita, error) {
	if err := s.require(ctx, auth, "Agendamiento"); err != nil {
		return Cita{}, err
	}
	estado = strings.ToUpper(strings.TrimSpace(estado))
	switch estado {
	case CitaAgendada, CitaConfirmada, CitaCompletada, CitaCancelada:
	default:
		return Cita{}, ErrUnknownState
	}

	cita, err := s.repo.CitaByID(ctx, citaID)
	if err != nil {
		return Cita{}, err
	}
	if !CanTransition(cita.Estado, estado) {
		return Cita{}, ErrBadTransition
	}
	if err := s.repo.SetCitaEstado(ctx, citaID, estado); err != nil {
		return Cita{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionCambiarEstado,
		Recurso:   "citas",
		RecursoID: citaID,
		Detalle: map[string]any{
			"Estado": map[string]string{"old": cita.Estado, "new": estado},
		},
		Resultado: audit.ResultSuccess,
	})

	cita.Estado = estado
	return cita, nil
}

// require resolves the caller's permissions and applies the access gate.
// A denied attempt leaves an audit trace.
func (s *Service) require(ctx context.Context, auth *shared.AuthContext, recurso string) error {
	if auth == nil {
		return ErrSessionMissing
	}
	var perms []rbac.UserPermission
	if !auth.IsAdmin() {
		var err error
		perms, err = s.perms.ListUserPermissions(ctx, auth.UsuarioID)
		if err != nil {
			return err
		}
	}
	if !rbac.Allowed(auth.Rol, perms, recurso, rbac.AccionVer) {
		s.audit.Record(ctx, audit.Entry{
			UsuarioID: auth.UsuarioID,
			Accion:    "ACCESO",
			Recurso:   recurso,
			Resultado: audit.ResultDenied,
		})
		return ErrNoPermission
	}
	return nil
}
