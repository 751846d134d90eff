package rbac

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/observability"
	"github.com/andescare/clinica/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepo struct {
	roles       map[string]Role     // keyed by nombre
	usersByRole map[string][]string // rolID -> active user IDs
	rolePerms   map[string]RolePermission
	userPerms   map[string]UserPermission
	writeCalls  int
	txError     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		roles:       make(map[string]Role),
		usersByRole: make(map[string][]string),
		rolePerms:   make(map[string]RolePermission),
		userPerms:   make(map[string]UserPermission),
	}
}

func (m *mockRepo) addRole(id, nombre string) Role {
	role := Role{ID: id, Nombre: nombre, Activo: true}
	m.roles[nombre] = role
	return role
}

func rpKey(rolID, recurso, accion string) string  { return rolID + "|" + recurso + "|" + accion }
func upKey(userID, recurso, accion string) string { return userID + "|" + recurso + "|" + accion }

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepo) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	for _, r := range m.roles {
		roles = append(roles, r)
	}
	return roles, nil
}

func (m *mockRepo) GetRole(ctx context.Context, id string) (Role, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (m *mockRepo) GetRoleByName(ctx context.Context, nombre string) (Role, error) {
	if r, ok := m.roles[nombre]; ok {
		return r, nil
	}
	return Role{}, ErrRoleNotFound
}

func (m *mockRepo) CreateRole(ctx context.Context, nombre, descripcion string) (Role, error) {
	m.writeCalls++
	if _, ok := m.roles[nombre]; ok {
		return Role{}, ErrRoleExists
	}
	role := Role{ID: fmt.Sprintf("rol-%d", len(m.roles)+1), Nombre: nombre, Descripcion: descripcion, Activo: true}
	m.roles[nombre] = role
	return role, nil
}

func (m *mockRepo) UpdateRole(ctx context.Context, id, nombre, descripcion string, activo bool) (Role, error) {
	m.writeCalls++
	for old, r := range m.roles {
		if r.ID == id {
			delete(m.roles, old)
			r.Nombre, r.Descripcion, r.Activo = nombre, descripcion, activo
			m.roles[nombre] = r
			return r, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (m *mockRepo) DeactivateRole(ctx context.Context, id string) error {
	m.writeCalls++
	for nombre, r := range m.roles {
		if r.ID == id {
			r.Activo = false
			m.roles[nombre] = r
			return nil
		}
	}
	return ErrRoleNotFound
}

func (m *mockRepo) CountUsersWithRole(ctx context.Context, rolID string) (int, error) {
	return len(m.usersByRole[rolID]), nil
}

func (m *mockRepo) ListRolePermissions(ctx context.Context, rolID string) ([]RolePermission, error) {
	var perms []RolePermission
	for _, p := range m.rolePerms {
		if p.RolID == rolID && p.Activo {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (m *mockRepo) ListUserPermissions(ctx context.Context, usuarioID string) ([]UserPermission, error) {
	var perms []UserPermission
	for _, p := range m.userPerms {
		if p.UsuarioID == usuarioID && p.Activo {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (m *mockRepo) UpsertRolePermission(ctx context.Context, rp RolePermission) error {
	m.writeCalls++
	m.rolePerms[rpKey(rp.RolID, rp.Recurso, rp.Accion)] = rp
	return nil
}

func (m *mockRepo) ActiveUserIDsWithRole(ctx context.Context, rolID string) ([]string, error) {
	return m.usersByRole[rolID], nil
}

func (m *mockRepo) UpsertUserPermission(ctx context.Context, up UserPermission) error {
	m.writeCalls++
	m.userPerms[upKey(up.UsuarioID, up.Recurso, up.Accion)] = up
	return nil
}

// recordingSink captures audit entries without a database.
type recordingSink struct {
	entries []audit.Entry
}

func (r *recordingSink) Record(ctx context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

func newTestService(repo *mockRepo) (*Service, *recordingSink) {
	sink := &recordingSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, sink, observability.NewMetrics(), logger), sink
}

func adminCtx() *shared.AuthContext {
	return &shared.AuthContext{UsuarioID: "admin-1", Email: "admin@clinica.cl", Rol: shared.RoleAdmin}
}

// ============================================================================
// TESTS
// ============================================================================

func TestUpdateMatrixPropagatesToRoleHolders(t *testing.T) {
	repo := newMockRepo()
	role := repo.addRole("rol-kine", "KINESIOLOGO")
	repo.usersByRole[role.ID] = []string{"u1", "u2", "u3"}
	svc, sink := newTestService(repo)

	fanout, err := svc.UpdateMatrix(context.Background(), adminCtx(), []MatrixChange{
		{Role: "kinesiologo", Action: "Ver Pacientes", Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, fanout)

	tpl, ok := repo.rolePerms[rpKey(role.ID, "Pacientes", AccionVer)]
	require.True(t, ok, "template row must exist")
	assert.True(t, tpl.Activo)

	for _, u := range []string{"u1", "u2", "u3"} {
		up, ok := repo.userPerms[upKey(u, "Pacientes", AccionVer)]
		require.True(t, ok, "user %s must receive the permission", u)
		assert.True(t, up.Activo)
		assert.Equal(t, "admin@clinica.cl", up.OtorgadoPor)
	}

	require.Len(t, sink.entries, 1)
	assert.Equal(t, AccionActualizarPermisos, sink.entries[0].Accion)
}

func TestUpdateMatrixDisableProparatesDisabled(t *testing.T) {
	repo := newMockRepo()
	role := repo.addRole("rol-recep", "RECEPCIONISTA")
	repo.usersByRole[role.ID] = []string{"u9"}
	svc, _ := newTestService(repo)

	_, err := svc.UpdateMatrix(context.Background(), adminCtx(), []MatrixChange{
		{Role: "RECEPCIONISTA", Action: "Ver Agendamiento", Enabled: false},
	})
	require.NoError(t, err)

	up := repo.userPerms[upKey("u9", "Agendamiento", AccionVer)]
	assert.False(t, up.Activo)
}

func TestUpdateMatrixSkipsPatientPropagation(t *testing.T) {
	repo := newMockRepo()
	role := repo.addRole("rol-pac", "PACIENTE")
	repo.usersByRole[role.ID] = []string{"ghost"}
	svc, _ := newTestService(repo)

	fanout, err := svc.UpdateMatrix(context.Background(), adminCtx(), []MatrixChange{
		{Role: "PACIENTE", Action: "Ver Agendamiento", Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fanout)

	_, tplExists := repo.rolePerms[rpKey(role.ID, "Agendamiento", AccionVer)]
	assert.True(t, tplExists, "template is still written for patients")
	assert.Empty(t, repo.userPerms, "no user rows for the patient role")
}

func TestUpdateMatrixIdempotent(t *testing.T) {
	repo := newMockRepo()
	role := repo.addRole("rol-med", "MEDICO")
	repo.usersByRole[role.ID] = []string{"u1", "u2"}
	svc, _ := newTestService(repo)

	changes := []MatrixChange{{Role: "MEDICO", Action: "Ver Reportes BI", Enabled: true}}
	_, err := svc.UpdateMatrix(context.Background(), adminCtx(), changes)
	require.NoError(t, err)

	firstRolePerms := len(repo.rolePerms)
	firstUserPerms := len(repo.userPerms)
	firstState := fmt.Sprintf("%v|%v", repo.rolePerms, repo.userPerms)

	_, err = svc.UpdateMatrix(context.Background(), adminCtx(), changes)
	require.NoError(t, err)

	assert.Equal(t, firstRolePerms, len(repo.rolePerms))
	assert.Equal(t, firstUserPerms, len(repo.userPerms))
	assert.Equal(t, firstState, fmt.Sprintf("%v|%v", repo.rolePerms, repo.userPerms))
}

func TestUpdateMatrixUnknownLabelFallsBackToGeneral(t *testing.T) {
	repo := newMockRepo()
	role := repo.addRole("rol-kine", "KINESIOLOGO")
	svc, _ := newTestService(repo)

	_, err := svc.UpdateMatrix(context.Background(), adminCtx(), []MatrixChange{
		{Role: "KINESIOLOGO", Action: "Acción Inventada", Enabled: true},
	})
	require.NoError(t, err)
	_, ok := repo.rolePerms[rpKey(role.ID, "General", AccionVer)]
	assert.True(t, ok)
}

func TestUpdateMatrixRejectsNonAdmin(t *testing.T) {
	repo := newMockRepo()
	repo.addRole("rol-kine", "KINESIOLOGO")
	svc, sink := newTestService(repo)

	cases := []*shared.AuthContext{
		nil,
		{UsuarioID: "u1", Email: "kine@clinica.cl", Rol: "KINESIOLOGO"},
		{UsuarioID: "u2", Email: "recep@clinica.cl", Rol: "RECEPCIONISTA"},
	}
	for _, auth := range cases {
		_, err := svc.UpdateMatrix(context.Background(), auth, []MatrixChange{
			{Role: "KINESIOLOGO", Action: "Ver Pacientes", Enabled: true},
		})
		require.Error(t, err)
	}
	assert.Zero(t, repo.writeCalls, "unauthorized calls must not touch the repository")
	assert.Empty(t, sink.entries)
}

func TestUpdateMatrixEmptyChanges(t *testing.T) {
	svc, _ := newTestService(newMockRepo())
	_, err := svc.UpdateMatrix(context.Background(), adminCtx(), nil)
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestUpdateMatrixUnknownRole(t *testing.T) {
	svc, _ := newTestService(newMockRepo())
	_, err := svc.UpdateMatrix(context.Background(), adminCtx(), []MatrixChange{
		{Role: "FANTASMA", Action: "Ver Pacientes", Enabled: true},
	})
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestSeedDefaults(t *testing.T) {
	repo := newMockRepo()
	kine := repo.addRole("rol-kine", "KINESIOLOGO")
	recep := repo.addRole("rol-recep", "RECEPCIONISTA")
	// MEDICO intentionally missing: the seed must skip it.
	repo.usersByRole[kine.ID] = []string{"k1"}
	repo.usersByRole[recep.ID] = []string{"r1", "r2"}
	svc, _ := newTestService(repo)

	fanout, err := svc.SeedDefaults(context.Background(), adminCtx())
	require.NoError(t, err)
	// KINESIOLOGO: 3 actions x 1 user; RECEPCIONISTA: 2 actions x 2 users.
	assert.Equal(t, 7, fanout)

	up, ok := repo.userPerms[upKey("k1", "Estándar HL7", AccionVer)]
	require.True(t, ok)
	assert.Equal(t, "SYSTEM", up.OtorgadoPor)

	_, ok = repo.userPerms[upKey("r1", "Reportes BI", AccionVer)]
	assert.False(t, ok, "receptionists do not get BI reports by default")
}

func TestSeedDefaultsIdempotent(t *testing.T) {
	repo := newMockRepo()
	kine := repo.addRole("rol-kine", "KINESIOLOGO")
	repo.usersByRole[kine.ID] = []string{"k1"}
	svc, _ := newTestService(repo)

	_, err := svc.SeedDefaults(context.Background(), adminCtx())
	require.NoError(t, err)
	state := fmt.Sprintf("%v|%v", repo.rolePerms, repo.userPerms)

	_, err = svc.SeedDefaults(context.Background(), adminCtx())
	require.NoError(t, err)
	assert.Equal(t, state, fmt.Sprintf("%v|%v", repo.rolePerms, repo.userPerms))
}

func TestMyPermissions(t *testing.T) {
	repo := newMockRepo()
	repo.userPerms[upKey("u1", "Pacientes", AccionVer)] = UserPermission{
		UsuarioID: "u1", Recurso: "Pacientes", Accion: AccionVer, Activo: true,
	}
	repo.userPerms[upKey("u1", "Agendamiento", AccionVer)] = UserPermission{
		UsuarioID: "u1", Recurso: "Agendamiento", Accion: AccionVer, Activo: false,
	}
	svc, _ := newTestService(repo)

	perms, err := svc.MyPermissions(context.Background(),
		&shared.AuthContext{UsuarioID: "u1", Email: "kine@clinica.cl", Rol: "KINESIOLOGO"})
	require.NoError(t, err)
	require.Len(t, perms, 1, "inactive rows are filtered out")
	assert.Equal(t, "Pacientes", perms[0].Recurso)
}

func TestMyPermissionsNonStaffEmpty(t *testing.T) {
	svc, _ := newTestService(newMockRepo())
	perms, err := svc.MyPermissions(context.Background(),
		&shared.AuthContext{Email: "paciente@clinica.cl", Rol: shared.RolePaciente})
	require.NoError(t, err)
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestMyPermissionsNoSession(t *testing.T) {
	svc, _ := newTestService(newMockRepo())
	_, err := svc.MyPermissions(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDeleteRoleInUse(t *testing.T) {
	repo := newMockRepo()
	role := repo.addRole("rol-kine", "KINESIOLOGO")
	repo.usersByRole[role.ID] = []string{"u1"}
	svc, _ := newTestService(repo)

	err := svc.DeleteRole(context.Background(), adminCtx(), role.ID)
	assert.ErrorIs(t, err, ErrRoleInUse)
	assert.True(t, repo.roles["KINESIOLOGO"].Activo, "role must stay active")
}

func TestCreateRoleUppercasesName(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	role, err := svc.CreateRole(context.Background(), adminCtx(), "  enfermera ", "Enfermería")
	require.NoError(t, err)
	assert.Equal(t, "ENFERMERA", role.Nombre)
}

func TestAllowed(t *testing.T) {
	perms := []UserPermission{
		{Recurso: "Pacientes", Accion: AccionVer, Activo: true},
		{Recurso: "Reportes BI", Accion: AccionVer, Activo: false},
	}
	assert.True(t, Allowed(shared.RoleAdmin, nil, "Cualquiera", AccionVer))
	assert.False(t, Allowed(shared.RolePaciente, perms, "Pacientes", AccionVer))
	assert.True(t, Allowed("KINESIOLOGO", perms, "Pacientes", AccionVer))
	assert.False(t, Allowed("KINESIOLOGO", perms, "Reportes BI", AccionVer))
	assert.False(t, Allowed("KINESIOLOGO", perms, "Agendamiento", AccionVer))
}
