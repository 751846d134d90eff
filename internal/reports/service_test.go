package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/shared"
	_ "github.com/andescare/clinica/internal/testing/guard"
)

type countingRepo struct {
	computes int
}

func (c *countingRepo) ActiveUserCount(ctx context.Context) (int, error) {
	c.computes++
	return 12, nil
}
func (c *countingRepo) CitasTodayCount(ctx context.Context) (int, error)   { return 4, nil }
func (c *countingRepo) PendingExamCount(ctx context.Context) (int, error)  { return 7, nil }
func (c *countingRepo) LoginCountSince(ctx context.Context, since time.Time) (int, error) {
	return 30, nil
}

type allowAllPerms struct{}

func (allowAllPerms) ListUserPermissions(ctx context.Context, usuarioID string) ([]rbac.UserPermission, error) {
	return []rbac.UserPermission{
		{Recurso: "Reportes BI", Accion: rbac.AccionVer, Activo: true},
	}, nil
}

type noPerms struct{}

func (noPerms) ListUserPermissions(ctx context.Context, usuarioID string) ([]rbac.UserPermission, error) {
	return nil, nil
}

func newReportService(t *testing.T, repo KPIRepository, perms PermissionLookup) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, perms, client, time.Minute, logger)
}

func medicoCtx() *shared.AuthContext {
	return &shared.AuthContext{UsuarioID: "u-med", Email: "medico@clinica.cl", Rol: "MEDICO"}
}

func TestKPIsComputedOnceWhileCached(t *testing.T) {
	repo := &countingRepo{}
	svc := newReportService(t, repo, allowAllPerms{})

	first, err := svc.KPIs(context.Background(), medicoCtx())
	require.NoError(t, err)
	assert.Equal(t, 12, first.UsuariosActivos)
	assert.Equal(t, 4, first.CitasHoy)
	assert.Equal(t, 7, first.ExamenesPendientes)
	assert.Equal(t, 30, first.LoginsSemana)

	second, err := svc.KPIs(context.Background(), medicoCtx())
	require.NoError(t, err)
	assert.Equal(t, first.GeneradoEn.Unix(), second.GeneradoEn.Unix())
	assert.Equal(t, 1, repo.computes, "second read must come from cache")
}

func TestKPIsRecomputeAfterInvalidate(t *testing.T) {
	repo := &countingRepo{}
	svc := newReportService(t, repo, allowAllPerms{})

	_, err := svc.KPIs(context.Background(), medicoCtx())
	require.NoError(t, err)
	svc.Invalidate(context.Background())
	_, err = svc.KPIs(context.Background(), medicoCtx())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.computes)
}

func TestKPIsRequirePermission(t *testing.T) {
	svc := newReportService(t, &countingRepo{}, noPerms{})

	_, err := svc.KPIs(context.Background(), medicoCtx())
	assert.ErrorIs(t, err, ErrNoPermission)

	_, err = svc.KPIs(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionMissing)

	// Admins skip the permission rows entirely.
	_, err = svc.KPIs(context.Background(),
		&shared.AuthContext{UsuarioID: "u-admin", Rol: shared.RoleAdmin})
	assert.NoError(t, err)
}
