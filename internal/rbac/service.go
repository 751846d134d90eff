package rbac

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/observability"
	"github.com/andescare/clinica/internal/shared"
)

// Audit action names written by this package.
const (
	AccionActualizarPermisos = "ACTUALIZAR_PERMISOS"
	AccionSembrarPermisos    = "SEMBRAR_PERMISOS"
	AccionCrearRol           = "CREAR_ROL"
	AccionActualizarRol      = "ACTUALIZAR_ROL"
	AccionEliminarRol        = "ELIMINAR_ROL"
)

// Service orchestrates role and permission operations.
type Service struct {
	repo    Repository
	audit   audit.Recorder
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, recorder audit.Recorder, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: recorder, metrics: metrics, logger: logger}
}

// ListRoles returns all active roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRole inserts a new role. Names are stored upper-case.
func (s *Service) CreateRole(ctx context.Context, auth *shared.AuthContext, nombre, descripcion string) (Role, error) {
	if err := requireAdmin(auth); err != nil {
		return Role{}, err
	}
	nombre = strings.ToUpper(strings.TrimSpace(nombre))
	if nombre == "" {
		return Role{}, ErrNoChanges
	}
	role, err := s.repo.CreateRole(ctx, nombre, strings.TrimSpace(descripcion))
	if err != nil {
		return Role{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionCrearRol,
		Recurso:   "roles",
		RecursoID: role.ID,
		Detalle:   map[string]any{"nombre": role.Nombre},
	})
	return role, nil
}

// UpdateRole updates name, description and active flag.
func (s *Service) UpdateRole(ctx context.Context, auth *shared.AuthContext, id, nombre, descripcion string, activo bool) (Role, error) {
	if err := requireAdmin(auth); err != nil {
		return Role{}, err
	}
	nombre = strings.ToUpper(strings.TrimSpace(nombre))
	if nombre == "" {
		return Role{}, ErrNoChanges
	}
	role, err := s.repo.UpdateRole(ctx, id, nombre, strings.TrimSpace(descripcion), activo)
	if err != nil {
		return Role{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionActualizarRol,
		Recurso:   "roles",
		RecursoID: role.ID,
		Detalle:   map[string]any{"nombre": role.Nombre, "activo": role.Activo},
	})
	return role, nil
}

// DeleteRole soft deletes a role that has no users assigned.
func (s *Service) DeleteRole(ctx context.Context, auth *shared.AuthContext, id string) error {
	if err := requireAdmin(auth); err != nil {
		return err
	}
	count, err := s.repo.CountUsersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleInUse
	}
	if err := s.repo.DeactivateRole(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionEliminarRol,
		Recurso:   "roles",
		RecursoID: id,
	})
	return nil
}

// UpdateMatrix applies admin-edited permission matrix changes: each change
// upserts the role's template row and propagates to every active holder of
// the role, all inside one transaction so a mid-batch failure leaves no
// half-applied matrix. Returns how many user rows were touched.
func (s *Service) UpdateMatrix(ctx context.Context, auth *shared.AuthContext, changes []MatrixChange) (int, error) {
	if err := requireAdmin(auth); err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, ErrNoChanges
	}

	fanout := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, change := range changes {
			role, err := s.repo.GetRoleByName(ctx, strings.ToUpper(strings.TrimSpace(change.Role)))
			if err != nil {
				return err
			}
			recurso, accion := ResolveAction(change.Action)

			if err := tx.UpsertRolePermission(ctx, RolePermission{
				RolID:   role.ID,
				Recurso: recurso,
				Accion:  accion,
				Activo:  change.Enabled,
			}); err != nil {
				return err
			}

			// Patients are not system users; templates only.
			if role.Nombre == shared.RolePaciente {
				continue
			}

			ids, err := tx.ActiveUserIDsWithRole(ctx, role.ID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := tx.UpsertUserPermission(ctx, UserPermission{
					UsuarioID:   id,
					Recurso:     recurso,
					Accion:      accion,
					Activo:      change.Enabled,
					OtorgadoPor: auth.Email,
				}); err != nil {
					return err
				}
			}
			fanout += len(ids)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ObservePermissionFanout(fanout)
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionActualizarPermisos,
		Recurso:   "permisos",
		Detalle:   map[string]any{"cambios": len(changes), "usuarios_afectados": fanout},
	})
	return fanout, nil
}

// SeedDefaults writes the hard-coded permission baseline for the clinical
// roles and propagates it to their current holders. Idempotent: templates
// and user rows are keyed upserts. Roles missing from the database are
// skipped with a warning rather than aborting the seed.
func (s *Service) SeedDefaults(ctx context.Context, auth *shared.AuthContext) (int, error) {
	if err := requireAdmin(auth); err != nil {
		return 0, err
	}

	fanout := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, grant := range defaultGrants {
			role, err := s.repo.GetRoleByName(ctx, grant.role)
			if err != nil {
				if errors.Is(err, ErrRoleNotFound) {
					s.logger.Warn("seed: role missing", slog.String("rol", grant.role))
					continue
				}
				return err
			}
			ids, err := tx.ActiveUserIDsWithRole(ctx, role.ID)
			if err != nil {
				return err
			}
			for _, action := range grant.actions {
				recurso, accion := ResolveAction(action)
				if err := tx.UpsertRolePermission(ctx, RolePermission{
					RolID:   role.ID,
					Recurso: recurso,
					Accion:  accion,
					Activo:  true,
				}); err != nil {
					return err
				}
				for _, id := range ids {
					if err := tx.UpsertUserPermission(ctx, UserPermission{
						UsuarioID:   id,
						Recurso:     recurso,
						Accion:      accion,
						Activo:      true,
						OtorgadoPor: "SYSTEM",
					}); err != nil {
						return err
					}
				}
				fanout += len(ids)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ObservePermissionFanout(fanout)
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionSembrarPermisos,
		Recurso:   "permisos",
		Detalle:   map[string]any{"usuarios_afectados": fanout},
	})
	return fanout, nil
}

// MyPermissions returns the caller's active effective permissions. A
// caller without a staff record gets an empty list, not an error.
func (s *Service) MyPermissions(ctx context.Context, auth *shared.AuthContext) ([]UserPermission, error) {
	if auth == nil {
		return nil, ErrNoSession
	}
	if !auth.IsStaff() {
		return []UserPermission{}, nil
	}
	perms, err := s.repo.ListUserPermissions(ctx, auth.UsuarioID)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []UserPermission{}
	}
	return perms, nil
}

func requireAdmin(auth *shared.AuthContext) error {
	if auth == nil {
		return ErrNoSession
	}
	if !auth.IsAdmin() {
		return ErrDenied
	}
	return nil
}
