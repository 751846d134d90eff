package clinical

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/shared"
)

type mockClinicalRepo struct {
	fichas   map[string]FichaClinica // by paciente
	examenes map[string][]Examen     // by ficha
	citas    map[string]*Cita
}

func newMockClinicalRepo() *mockClinicalRepo {
	return &mockClinicalRepo{
		fichas:   make(map[string]FichaClinica),
		examenes: make(map[string][]Examen),
		citas:    make(map[string]*Cita),
	}
}

func (m *mockClinicalRepo) FichaByPaciente(ctx context.Context, pacienteID string) (FichaClinica, error) {
	if f, ok := m.fichas[pacienteID]; ok {
		return f, nil
	}
	return FichaClinica{}, ErrFichaNotFound
}

func (m *mockClinicalRepo) ExamenesByFicha(ctx context.Context, fichaID string) ([]Examen, error) {
	return m.examenes[fichaID], nil
}

func (m *mockClinicalRepo) AddExamen(ctx context.Context, e *Examen) error {
	e.ID = "exa-nuevo"
	e.CreadoEn = time.Now()
	m.examenes[e.FichaID] = append(m.examenes[e.FichaID], *e)
	return nil
}

func (m *mockClinicalRepo) CitasBetween(ctx context.Context, from, to time.Time) ([]Cita, error) {
	var out []Cita
	for _, c := range m.citas {
		if !c.Inicio.Before(from) && c.Inicio.Before(to) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClinicalRepo) CitaByID(ctx context.Context, id string) (Cita, error) {
	if c, ok := m.citas[id]; ok {
		return *c, nil
	}
	return Cita{}, ErrCitaNotFound
}

func (m *mockClinicalRepo) SetCitaEstado(ctx context.Context, id, estado string) error {
	c, ok := m.citas[id]
	if !ok {
		return ErrCitaNotFound
	}
	c.Estado = estado
	return nil
}

type mockPerms struct {
	byUser map[string][]rbac.UserPermission
}

func (m *mockPerms) ListUserPermissions(ctx context.Context, usuarioID string) ([]rbac.UserPermission, error) {
	return m.byUser[usuarioID], nil
}

type recordingSink struct {
	entries []audit.Entry
}

func (r *recordingSink) Record(ctx context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

func newClinicalService(repo *mockClinicalRepo, perms *mockPerms) (*Service, *recordingSink) {
	sink := &recordingSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, perms, sink, logger), sink
}

func grant(recurso string) rbac.UserPermission {
	return rbac.UserPermission{Recurso: recurso, Accion: rbac.AccionVer, Activo: true}
}

func kineCtx() *shared.AuthContext {
	return &shared.AuthContext{UsuarioID: "u-kine", Email: "kine@clinica.cl", Rol: "KINESIOLOGO"}
}

func TestFichaRequiresPacientesPermission(t *testing.T) {
	repo := newMockClinicalRepo()
	repo.fichas["pac-1"] = FichaClinica{ID: "fic-1", PacienteID: "pac-1", Paciente: "Juan Soto"}
	perms := &mockPerms{byUser: map[string][]rbac.UserPermission{}}
	svc, sink := newClinicalService(repo, perms)

	_, _, err := svc.Ficha(context.Background(), kineCtx(), "pac-1")
	assert.ErrorIs(t, err, ErrNoPermission)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ResultDenied, sink.entries[0].Resultado)

	perms.byUser["u-kine"] = []rbac.UserPermission{grant("Pacientes")}
	ficha, _, err := svc.Ficha(context.Background(), kineCtx(), "pac-1")
	require.NoError(t, err)
	assert.Equal(t, "fic-1", ficha.ID)
}

func TestFichaAdminBypassesPermissionRows(t *testing.T) {
	repo := newMockClinicalRepo()
	repo.fichas["pac-1"] = FichaClinica{ID: "fic-1", PacienteID: "pac-1"}
	svc, _ := newClinicalService(repo, &mockPerms{byUser: map[string][]rbac.UserPermission{}})

	admin := &shared.AuthContext{UsuarioID: "u-admin", Rol: shared.RoleAdmin}
	_, _, err := svc.Ficha(context.Background(), admin, "pac-1")
	assert.NoError(t, err)
}

func TestRegisterExamen(t *testing.T) {
	repo := newMockClinicalRepo()
	repo.fichas["pac-1"] = FichaClinica{ID: "fic-1", PacienteID: "pac-1"}
	perms := &mockPerms{byUser: map[string][]rbac.UserPermission{
		"u-kine": {grant("Pacientes")},
	}}
	svc, sink := newClinicalService(repo, perms)

	examen, err := svc.RegisterExamen(context.Background(), kineCtx(), "pac-1", ExamenInput{Tipo: "  Espirometría "})
	require.NoError(t, err)
	assert.Equal(t, "Espirometría", examen.Tipo)
	assert.Equal(t, ExamenPendiente, examen.Estado)
	assert.Equal(t, "fic-1", examen.FichaID)
	require.Len(t, repo.examenes["fic-1"], 1)

	entry := sink.entries[len(sink.entries)-1]
	assert.Equal(t, AccionRegistrarExamen, entry.Accion)
	assert.Equal(t, examen.ID, entry.RecursoID)

	// A supplied result marks the exam as reported right away.
	conResultado, err := svc.RegisterExamen(context.Background(), kineCtx(), "pac-1",
		ExamenInput{Tipo: "Hemograma", Resultado: "Normal"})
	require.NoError(t, err)
	assert.Equal(t, ExamenInformado, conResultado.Estado)

	_, err = svc.RegisterExamen(context.Background(), kineCtx(), "pac-1", ExamenInput{Tipo: "   "})
	assert.ErrorIs(t, err, ErrExamenSinTipo)

	_, err = svc.RegisterExamen(context.Background(), kineCtx(), "desconocido", ExamenInput{Tipo: "Hemograma"})
	assert.ErrorIs(t, err, ErrFichaNotFound)
}

func TestCitaTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{CitaAgendada, CitaConfirmada, true},
		{CitaAgendada, CitaCancelada, true},
		{CitaAgendada, CitaCompletada, false},
		{CitaConfirmada, CitaCompletada, true},
		{CitaConfirmada, CitaAgendada, false},
		{CitaCompletada, CitaCancelada, false},
		{CitaCancelada, CitaAgendada, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestChangeCitaEstado(t *testing.T) {
	repo := newMockClinicalRepo()
	repo.citas["cit-1"] = &Cita{ID: "cit-1", Estado: CitaAgendada, Inicio: time.Now()}
	perms := &mockPerms{byUser: map[string][]rbac.UserPermission{
		"u-kine": {grant("Agendamiento")},
	}}
	svc, sink := newClinicalService(repo, perms)

	cita, err := svc.ChangeCitaEstado(context.Background(), kineCtx(), "cit-1", "confirmada")
	require.NoError(t, err)
	assert.Equal(t, CitaConfirmada, cita.Estado)

	entry := sink.entries[len(sink.entries)-1]
	change := entry.Detalle["Estado"].(map[string]string)
	assert.Equal(t, CitaAgendada, change["old"])
	assert.Equal(t, CitaConfirmada, change["new"])

	// Terminal states refuse further moves.
	_, err = svc.ChangeCitaEstado(context.Background(), kineCtx(), "cit-1", CitaAgendada)
	assert.ErrorIs(t, err, ErrBadTransition)

	_, err = svc.ChangeCitaEstado(context.Background(), kineCtx(), "cit-1", "INVENTADO")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestAgendaDefaultsToToday(t *testing.T) {
	repo := newMockClinicalRepo()
	now := time.Now()
	repo.citas["hoy"] = &Cita{ID: "hoy", Estado: CitaAgendada, Inicio: now}
	repo.citas["ayer"] = &Cita{ID: "ayer", Estado: CitaAgendada, Inicio: now.Add(-48 * time.Hour)}
	perms := &mockPerms{byUser: map[string][]rbac.UserPermission{
		"u-kine": {grant("Agendamiento")},
	}}
	svc, _ := newClinicalService(repo, perms)

	citas, err := svc.Agenda(context.Background(), kineCtx(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, citas, 1)
	assert.Equal(t, "hoy", citas[0].ID)
}
