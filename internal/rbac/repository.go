package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andescare/clinica/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles and permissions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, nombre string) (Role, error)
	CreateRole(ctx context.Context, nombre, descripcion string) (Role, error)
	UpdateRole(ctx context.Context, id, nombre, descripcion string, activo bool) (Role, error)
	DeactivateRole(ctx context.Context, id string) error
	CountUsersWithRole(ctx context.Context, rolID string) (int, error)
	ListRolePermissions(ctx context.Context, rolID string) ([]RolePermission, error)
	ListUserPermissions(ctx context.Context, usuarioID string) ([]UserPermission, error)
}

// TxRepository groups the writes that must land atomically during a
// permission matrix update.
type TxRepository interface {
	UpsertRolePermission(ctx context.Context, rp RolePermission) error
	ActiveUserIDsWithRole(ctx context.Context, rolID string) ([]string, error)
	UpsertUserPermission(ctx context.Context, up UserPermission) error
}

// PGRepository implements Repository on pgxpool.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithTx runs fn inside a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const roleColumns = `id, nombre, COALESCE(descripcion, ''), activo, creado_en, actualizado_en`

// ListRoles returns all active roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE activo ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id string) (Role, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

// GetRoleByName fetches a role by its unique upper-case name.
func (r *PGRepository) GetRoleByName(ctx context.Context, nombre string) (Role, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE nombre = $1`, nombre)
}

func (r *PGRepository) getRole(ctx context.Context, query, arg string) (Role, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, nombre, descripcion string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (id, nombre, descripcion, activo, creado_en, actualizado_en)
		VALUES (gen_random_uuid(), $1, $2, TRUE, NOW(), NOW())
		RETURNING `+roleColumns, nombre, descripcion)
	role, err := scanRole(row)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Role{}, ErrRoleExists
		}
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, id, nombre, descripcion string, activo bool) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET nombre = $2, descripcion = $3, activo = $4, actualizado_en = NOW()
		WHERE id = $1
		RETURNING `+roleColumns, id, nombre, descripcion, activo)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// DeactivateRole soft deletes a role.
func (r *PGRepository) DeactivateRole(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET activo = FALSE, actualizado_en = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// CountUsersWithRole counts system users currently assigned to the role,
// soft-deleted ones included so a role with history cannot vanish.
func (r *PGRepository) CountUsersWithRole(ctx context.Context, rolID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM usuarios_sistema WHERE rol_id = $1`, rolID).Scan(&count)
	return count, err
}

// ListRolePermissions returns the active template rows for a role.
func (r *PGRepository) ListRolePermissions(ctx context.Context, rolID string) ([]RolePermission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rol_id, recurso, accion, activo FROM permisos_rol
		WHERE rol_id = $1 AND activo ORDER BY recurso, accion`, rolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []RolePermission
	for rows.Next() {
		var p RolePermission
		if err := rows.Scan(&p.RolID, &p.Recurso, &p.Accion, &p.Activo); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListUserPermissions returns the active effective rows for a system user.
func (r *PGRepository) ListUserPermissions(ctx context.Context, usuarioID string) ([]UserPermission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT usuario_id, recurso, accion, activo, COALESCE(otorgado_por, '')
		FROM permisos_usuario
		WHERE usuario_id = $1 AND activo ORDER BY recurso, accion`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []UserPermission
	for rows.Next() {
		var p UserPermission
		if err := rows.Scan(&p.UsuarioID, &p.Recurso, &p.Accion, &p.Activo, &p.OtorgadoPor); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) UpsertRolePermission(ctx context.Context, rp RolePermission) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO permisos_rol (rol_id, recurso, accion, activo)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (rol_id, recurso, accion) DO UPDATE SET activo = EXCLUDED.activo`,
		rp.RolID, rp.Recurso, rp.Accion, rp.Activo)
	return err
}

func (t *txRepository) ActiveUserIDsWithRole(ctx context.Context, rolID string) ([]string, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id FROM usuarios_sistema WHERE rol_id = $1 AND activo`, rolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *txRepository) UpsertUserPermission(ctx context.Context, up UserPermission) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO permisos_usuario (usuario_id, recurso, accion, activo, otorgado_por)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (usuario_id, recurso, accion)
		DO UPDATE SET activo = EXCLUDED.activo, otorgado_por = EXCLUDED.otorgado_por`,
		up.UsuarioID, up.Recurso, up.Accion, up.Activo, up.OtorgadoPor)
	return err
}

// scanRole works for both pgx.Row and pgx.Rows.
func scanRole(row interface{ Scan(...any) error }) (Role, error) {
	var role Role
	var creado, actualizado time.Time
	if err := row.Scan(&role.ID, &role.Nombre, &role.Descripcion, &role.Activo, &creado, &actualizado); err != nil {
		return Role{}, err
	}
	role.CreadoEn = creado
	role.ActualizadoEn = actualizado
	return role, nil
}

var _ Repository = (*PGRepository)(nil)
