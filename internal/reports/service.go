// Package reports computes the dashboard KPIs. Results are cached in
// Redis so the dashboard does not hammer Postgres on every refresh.
package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/shared"
)

const cacheKey = "clinica:reports:kpis"

// KPISet is the dashboard payload.
type KPISet struct {
	UsuariosActivos    int       `json:"usuarios_activos"`
	CitasHoy           int       `json:"citas_hoy"`
	ExamenesPendientes int       `json:"examenes_pendientes"`
	LoginsSemana       int       `json:"logins_semana"`
	GeneradoEn         time.Time `json:"generado_en"`
}

// KPIRepository computes the raw numbers.
type KPIRepository interface {
	ActiveUserCount(ctx context.Context) (int, error)
	CitasTodayCount(ctx context.Context) (int, error)
	PendingExamCount(ctx context.Context) (int, error)
	LoginCountSince(ctx context.Context, since time.Time) (int, error)
}

// PermissionLookup fetches the caller's effective permissions.
type PermissionLookup interface {
	ListUserPermissions(ctx context.Context, usuarioID string) ([]rbac.UserPermission, error)
}

type Service struct {
	repo   KPIRepository
	perms  PermissionLookup
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo KPIRepository, perms PermissionLookup, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{repo: repo, perms: perms, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// KPIs returns the dashboard numbers, from cache when fresh. Requires
// the Reportes BI permission. Cache failures fall through to Postgres.
func (s *Service) KPIs(ctx context.Context, auth *shared.AuthContext) (KPISet, error) {
	if err := s.require(ctx, auth); err != nil {
		return KPISet{}, err
	}

	if cached, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
		var set KPISet
		if err := json.Unmarshal(cached, &set); err == nil {
			return set, nil
		}
	}

	set, err := s.compute(ctx)
	if err != nil {
		return KPISet{}, err
	}

	if data, err := json.Marshal(set); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
			s.logger.Warn("reports: cache write", slog.Any("error", err))
		}
	}
	return set, nil
}

// Invalidate drops the cached KPIs so the next read recomputes.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn("reports: cache invalidate", slog.Any("error", err))
	}
}

func (s *Service) compute(ctx context.Context) (KPISet, error) {
	var set KPISet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		set.UsuariosActivos, err = s.repo.ActiveUserCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.CitasHoy, err = s.repo.CitasTodayCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.ExamenesPendientes, err = s.repo.PendingExamCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		set.LoginsSemana, err = s.repo.LoginCountSince(gctx, s.now().AddDate(0, 0, -7))
		return err
	})
	if err := g.Wait(); err != nil {
		return KPISet{}, err
	}
	set.GeneradoEn = s.now()
	return set, nil
}

func (s *Service) require(ctx context.Context, auth *shared.AuthContext) error {
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
	if !rbac.Allowed(auth.Rol, perms, "Reportes BI", rbac.AccionVer) {
		return ErrNoPermission
	}
	return nil
}
