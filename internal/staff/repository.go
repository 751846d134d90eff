package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andescare/clinica/internal/personas"
	"github.com/andescare/clinica/internal/platform/db"
	"github.com/andescare/clinica/internal/rbac"
)

// Repository is the read side plus the transaction entry point.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetByID(ctx context.Context, id string) (SystemUser, error)
	GetByEmail(ctx context.Context, email string) (SystemUser, error)
	List(ctx context.Context, filters ListFilters) ([]SystemUser, error)
	EmailInUse(ctx context.Context, email, excludePersonaID string) (bool, error)
	RutInUse(ctx context.Context, rut, excludePersonaID string) (bool, error)
}

// TxRepository bundles the writes that must land atomically when an
// account is created, updated or removed: persona, credential, system
// user row and the per-user permission rows derived from the role.
type TxRepository interface {
	CreatePersona(ctx context.Context, p *personas.Persona) error
	UpdatePersona(ctx context.Context, p *personas.Persona) error
	DeactivatePersona(ctx context.Context, personaID string) error
	CreateCredential(ctx context.Context, personaID, passwordHash string, mustChange bool) error
	UpdatePassword(ctx context.Context, personaID, passwordHash string, mustChange bool) error
	CreateSystemUser(ctx context.Context, personaID, rolID string, activo bool) (string, error)
	UpdateSystemUser(ctx context.Context, userID, rolID string, activo bool) error
	DeactivateSystemUser(ctx context.Context, userID string) error
	ClearUserPermissions(ctx context.Context, userID string) error
	SeedUserPermissions(ctx context.Context, userID, rolID, otorgadoPor string) error
}

const userColumns = `u.id, u.persona_id, u.rol_id, r.nombre,
	u.activo, u.debe_cambiar_password, u.ultimo_acceso, u.creado_en, u.actualizado_en,
	p.id, p.nombres, p.apellidos, p.rut, p.email,
	COALESCE(p.telefono, ''), COALESCE(p.direccion, ''),
	p.comuna_id, p.region_id, p.fecha_nacimiento,
	p.activo, p.creado_en, p.actualizado_en`

const userFrom = ` FROM usuarios_sistema u
	JOIN personas p ON p.id = u.persona_id
	JOIN roles r ON r.id = u.rol_id`

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (SystemUser, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id = $1`, id)
	return scanUser(row)
}

func (r *PGRepository) GetByEmail(ctx context.Context, email string) (SystemUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+userFrom+` WHERE lower(p.email) = lower($1)`, email)
	return scanUser(row)
}

func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]SystemUser, error) {
	where := []string{"1=1"}
	args := []any{}
	if filters.Query != "" {
		args = append(args, "%"+personas.Fold(filters.Query)+"%")
		where = append(where, fmt.Sprintf(
			"(p.nombres_busqueda ILIKE $%d OR p.rut ILIKE $%d OR lower(p.email) LIKE $%d)",
			len(args), len(args), len(args)))
	}
	if filters.Role != "" {
		args = append(args, strings.ToUpper(filters.Role))
		where = append(where, fmt.Sprintf("r.nombre = $%d", len(args)))
	}
	if filters.OnlyActive {
		where = append(where, "u.activo AND p.activo")
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filters.Offset)
	limitClause += fmt.Sprintf(" OFFSET $%d", len(args))

	query := `SELECT ` + userColumns + userFrom +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY p.apellidos, p.nombres` + limitClause

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listar usuarios: %w", err)
	}
	defer rows.Close()

	var out []SystemUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepository) EmailInUse(ctx context.Context, email, excludePersonaID string) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personas
		 WHERE lower(email) = lower($1) AND ($2 = '' OR id::text <> $2)`,
		email, excludePersonaID).Scan(&n)
	return n > 0, err
}

func (r *PGRepository) RutInUse(ctx context.Context, rut, excludePersonaID string) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personas
		 WHERE rut = $1 AND ($2 = '' OR id::text <> $2)`,
		rut, excludePersonaID).Scan(&n)
	return n > 0, err
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) CreatePersona(ctx context.Context, p *personas.Persona) error {
	return personas.CreateTx(ctx, t.tx, p)
}

func (t *txRepository) UpdatePersona(ctx context.Context, p *personas.Persona) error {
	return personas.UpdateTx(ctx, t.tx, p)
}

func (t *txRepository) DeactivatePersona(ctx context.Context, personaID string) error {
	return personas.DeactivateTx(ctx, t.tx, personaID)
}

func (t *txRepository) CreateCredential(ctx context.Context, personaID, passwordHash string, mustChange bool) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO credenciales (id, persona_id, password_hash, debe_cambiar_password)
		 VALUES (gen_random_uuid(), $1, $2, $3)`,
		personaID, passwordHash, mustChange)
	return err
}

func (t *txRepository) UpdatePassword(ctx context.Context, personaID, passwordHash string, mustChange bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE credenciales SET
			password_hash = $2, debe_cambiar_password = $3,
			intentos_fallidos = 0, bloqueado_hasta = NULL, actualizado_en = now()
		 WHERE persona_id = $1`,
		personaID, passwordHash, mustChange)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (t *txRepository) CreateSystemUser(ctx context.Context, personaID, rolID string, activo bool) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx,
		`INSERT INTO usuarios_sistema (id, persona_id, rol_id, activo, debe_cambiar_password)
		 VALUES (gen_random_uuid(), $1, $2, $3, true)
		 RETURNING id`,
		personaID, rolID, activo).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateSystemUser(ctx context.Context, userID, rolID string, activo bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE usuarios_sistema SET rol_id = $2, activo = $3, actualizado_en = now()
		 WHERE id = $1`,
		userID, rolID, activo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (t *txRepository) DeactivateSystemUser(ctx context.Context, userID string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE usuarios_sistema SET activo = false, actualizado_en = now() WHERE id = $1`,
		userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (t *txRepository) ClearUserPermissions(ctx context.Context, userID string) error {
	return rbac.ClearUserPermissionsTx(ctx, t.tx, userID)
}

func (t *txRepository) SeedUserPermissions(ctx context.Context, userID, rolID, otorgadoPor string) error {
	return rbac.SeedUserPermissionsTx(ctx, t.tx, userID, rolID, otorgadoPor)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (SystemUser, error) {
	var u SystemUser
	err := row.Scan(&u.ID, &u.PersonaID, &u.RolID, &u.Rol,
		&u.Activo, &u.DebeCambiarPassword, &u.UltimoAcceso, &u.CreadoEn, &u.ActualizadoEn,
		&u.Persona.ID, &u.Persona.Nombres, &u.Persona.Apellidos, &u.Persona.Rut, &u.Persona.Email,
		&u.Persona.Telefono, &u.Persona.Direccion,
		&u.Persona.ComunaID, &u.Persona.RegionID, &u.Persona.FechaNac,
		&u.Persona.Activo, &u.Persona.CreadoEn, &u.Persona.ActualizadoEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return SystemUser{}, ErrUserNotFound
	}
	return u, err
}
