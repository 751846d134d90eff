package staff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/personas"
	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/rut"
	"github.com/andescare/clinica/internal/shared"
)

// Audit action names recorded by this package.
const (
	AccionCrearUsuario      = "CREAR_USUARIO"
	AccionActualizarUsuario = "ACTUALIZAR_USUARIO"
	AccionEliminarUsuario   = "ELIMINAR_USUARIO"
)

// auditFields fixes the order in which field changes appear in the log
// detail.
var auditFields = []string{"Nombre", "Email", "RUT", "Rol", "Región", "Comuna", "Dirección", "Estado"}

// RoleDirectory resolves role names to role records. Satisfied by the
// rbac repository.
type RoleDirectory interface {
	GetRoleByName(ctx context.Context, nombre string) (rbac.Role, error)
}

// Notifier queues follow-up work for account events. Nil disables it.
type Notifier interface {
	StaffCreated(ctx context.Context, email, nombre, rol string)
}

type Service struct {
	repo   Repository
	roles  RoleDirectory
	audit  audit.Recorder
	notify Notifier
	logger *slog.Logger
}

func NewService(repo Repository, roles RoleDirectory, recorder audit.Recorder, notify Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, audit: recorder, notify: notify, logger: logger}
}

// Create provisions a staff account: persona, credential, system user
// and the permission rows the role grants, all in one transaction. The
// new account must change its password on first login.
func (s *Service) Create(ctx context.Context, auth *shared.AuthContext, in CreateInput) (SystemUser, error) {
	if err := requireAdmin(auth); err != nil {
		return SystemUser{}, err
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return SystemUser{}, validationError(err)
	}
	canonicalRut, err := s.checkRut(in.RutBody, in.RutDV)
	if err != nil {
		return SystemUser{}, err
	}
	role, err := s.staffRole(ctx, in.Role)
	if err != nil {
		return SystemUser{}, err
	}
	if err := s.checkUnique(ctx, in.Email, canonicalRut, ""); err != nil {
		return SystemUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return SystemUser{}, fmt.Errorf("hash password: %w", err)
	}

	nombres, apellidos := splitName(in.Name)
	persona := personas.Persona{
		Nombres:   nombres,
		Apellidos: apellidos,
		Rut:       canonicalRut,
		Email:     in.Email,
		Direccion: in.Address,
		ComunaID:  in.Commune,
		RegionID:  in.Region,
		Activo:    true,
	}

	var userID string
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreatePersona(ctx, &persona); err != nil {
			return fmt.Errorf("crear persona: %w", err)
		}
		if err := tx.CreateCredential(ctx, persona.ID, string(hash), true); err != nil {
			return fmt.Errorf("crear credencial: %w", err)
		}
		userID, err = tx.CreateSystemUser(ctx, persona.ID, role.ID, in.Active)
		if err != nil {
			return fmt.Errorf("crear usuario: %w", err)
		}
		if err := tx.SeedUserPermissions(ctx, userID, role.ID, auth.Email); err != nil {
			return fmt.Errorf("sembrar permisos: %w", err)
		}
		return nil
	})
	if err != nil {
		return SystemUser{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionCrearUsuario,
		Recurso:   "usuarios",
		RecursoID: userID,
		Detalle: map[string]any{
			"nombre": in.Name,
			"email":  in.Email,
			"rol":    role.Nombre,
		},
	})
	s.logger.Info("staff: user created",
		slog.String("usuario_id", userID), slog.String("rol", role.Nombre))
	if s.notify != nil {
		s.notify.StaffCreated(ctx, in.Email, in.Name, role.Nombre)
	}

	return s.repo.GetByID(ctx, userID)
}

// Update edits an account. A role change discards the user's permission
// rows and reseeds them from the new role's template inside the same
// transaction, so the account never exists with a half-applied grant
// set. The audit entry carries old/new pairs for every changed field.
func (s *Service) Update(ctx context.Context, auth *shared.AuthContext, id string, in UpdateInput) (SystemUser, error) {
	if err := requireAdmin(auth); err != nil {
		return SystemUser{}, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return SystemUser{}, err
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return SystemUser{}, validationError(err)
	}
	canonicalRut, err := s.checkRut(in.RutBody, in.RutDV)
	if err != nil {
		return SystemUser{}, err
	}
	role, err := s.staffRole(ctx, in.Role)
	if err != nil {
		return SystemUser{}, err
	}
	if err := s.checkUnique(ctx, in.Email, canonicalRut, current.PersonaID); err != nil {
		return SystemUser{}, err
	}

	before := snapshotOf(current)

	nombres, apellidos := splitName(in.Name)
	persona := current.Persona
	persona.Nombres = nombres
	persona.Apellidos = apellidos
	persona.Rut = canonicalRut
	persona.Email = in.Email
	persona.Direccion = in.Address
	persona.ComunaID = in.Commune
	persona.RegionID = in.Region

	roleChanged := role.ID != current.RolID
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdatePersona(ctx, &persona); err != nil {
			return fmt.Errorf("actualizar persona: %w", err)
		}
		if err := tx.UpdateSystemUser(ctx, current.ID, role.ID, in.Active); err != nil {
			return err
		}
		if roleChanged {
			if err := tx.ClearUserPermissions(ctx, current.ID); err != nil {
				return fmt.Errorf("limpiar permisos: %w", err)
			}
			if err := tx.SeedUserPermissions(ctx, current.ID, role.ID, auth.Email); err != nil {
				return fmt.Errorf("sembrar permisos: %w", err)
			}
		}
		if in.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			if err := tx.UpdatePassword(ctx, current.PersonaID, string(hash), true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SystemUser{}, err
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return SystemUser{}, err
	}

	changes := audit.Diff(before, snapshotOf(updated), auditFields)
	detalle := audit.DetailMap(changes)
	if in.Password != "" {
		if detalle == nil {
			detalle = make(map[string]any, 1)
		}
		detalle["Password"] = map[string]string{"old": "••••", "new": "••••"}
	}
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionActualizarUsuario,
		Recurso:   "usuarios",
		RecursoID: id,
		Detalle:   detalle,
	})
	if roleChanged {
		s.logger.Info("staff: role changed, permissions reseeded",
			slog.String("usuario_id", id),
			slog.String("rol_anterior", current.Rol),
			slog.String("rol_nuevo", role.Nombre))
	}
	return updated, nil
}

// Delete soft deletes an account and drops its permission rows.
// Administrators cannot be removed, and nobody can remove themselves.
func (s *Service) Delete(ctx context.Context, auth *shared.AuthContext, id string) error {
	if err := requireAdmin(auth); err != nil {
		return err
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Self-deletion is checked before the role guard: an admin removing
	// their own account must hear that, not the admin-target refusal.
	if target.ID == auth.UsuarioID || strings.EqualFold(target.Persona.Email, auth.Email) {
		return ErrSelfDelete
	}
	if target.Rol == shared.RoleAdmin {
		return ErrDeleteAdmin
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClearUserPermissions(ctx, target.ID); err != nil {
			return err
		}
		if err := tx.DeactivateSystemUser(ctx, target.ID); err != nil {
			return err
		}
		return tx.DeactivatePersona(ctx, target.PersonaID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionEliminarUsuario,
		Recurso:   "usuarios",
		RecursoID: id,
		Detalle: map[string]any{
			"nombre": target.Persona.NombreCompleto(),
			"email":  target.Persona.Email,
			"rol":    target.Rol,
		},
	})
	return nil
}

func (s *Service) Get(ctx context.Context, auth *shared.AuthContext, id string) (SystemUser, error) {
	if err := requireAdmin(auth); err != nil {
		return SystemUser{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, auth *shared.AuthContext, filters ListFilters) ([]SystemUser, error) {
	if err := requireAdmin(auth); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []SystemUser{}
	}
	return users, nil
}

// checkRut validates the body/check-digit pair and returns the canonical
// stored form.
func (s *Service) checkRut(body, dv string) (string, error) {
	if !rut.ValidSplit(body, dv) {
		return "", ErrInvalidRut
	}
	return rut.Combine(body, dv), nil
}

// staffRole resolves a role name for a system user. Patients never get
// accounts, and inactive roles cannot be assigned.
func (s *Service) staffRole(ctx context.Context, nombre string) (rbac.Role, error) {
	role, err := s.roles.GetRoleByName(ctx, nombre)
	if err != nil {
		return rbac.Role{}, ErrInvalidRole
	}
	if !role.Activo || role.Nombre == shared.RolePaciente {
		return rbac.Role{}, ErrInvalidRole
	}
	return role, nil
}

func (s *Service) checkUnique(ctx context.Context, email, rut, excludePersonaID string) error {
	taken, err := s.repo.EmailInUse(ctx, email, excludePersonaID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	taken, err = s.repo.RutInUse(ctx, rut, excludePersonaID)
	if err != nil {
		return err
	}
	if taken {
		return ErrRutTaken
	}
	return nil
}

// snapshotOf flattens the auditable fields of an account into the form
// the diff utility compares.
func snapshotOf(u SystemUser) audit.Snapshot {
	estado := "Inactivo"
	if u.Activo {
		estado = "Activo"
	}
	return audit.Snapshot{
		"Nombre":    u.Persona.NombreCompleto(),
		"Email":     u.Persona.Email,
		"RUT":       u.Persona.Rut,
		"Rol":       u.Rol,
		"Región":    intLabel(u.Persona.RegionID),
		"Comuna":    intLabel(u.Persona.ComunaID),
		"Dirección": u.Persona.Direccion,
		"Estado":    estado,
	}
}

func intLabel(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func requireAdmin(auth *shared.AuthContext) error {
	if auth == nil {
		return rbac.ErrNoSession
	}
	if !auth.IsAdmin() {
		return rbac.ErrDenied
	}
	return nil
}
