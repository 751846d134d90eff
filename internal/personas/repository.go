package personas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrNotFound = errors.New("persona no encontrada")

const personaColumns = `id, nombres, apellidos, rut, email,
	COALESCE(telefono, ''), COALESCE(direccion, ''),
	comuna_id, region_id, fecha_nacimiento,
	activo, creado_en, actualizado_en`

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (Persona, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE id = $1`, id)
	return scanPersona(row)
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Persona, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE lower(email) = lower($1)`, email)
	return scanPersona(row)
}

func (r *PGRepository) FindByRut(ctx context.Context, rut string) (Persona, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE rut = $1`, rut)
	return scanPersona(row)
}

// EmailInUse reports whether another persona already owns the email.
// excludeID may be empty when checking a brand new record.
func (r *PGRepository) EmailInUse(ctx context.Context, email, excludeID string) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personas
		 WHERE lower(email) = lower($1) AND ($2 = '' OR id::text <> $2)`,
		email, excludeID).Scan(&n)
	return n > 0, err
}

// RutInUse reports whether another persona already owns the RUT.
func (r *PGRepository) RutInUse(ctx context.Context, rut, excludeID string) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personas
		 WHERE rut = $1 AND ($2 = '' OR id::text <> $2)`,
		rut, excludeID).Scan(&n)
	return n > 0, err
}

// Search matches by name, RUT or email, accent-insensitive, so that
// "Muñoz" and "Munoz" find the same people.
func (r *PGRepository) Search(ctx context.Context, query string, limit int) ([]Persona, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	folded := "%" + Fold(strings.TrimSpace(query)) + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+personaColumns+` FROM personas
		 WHERE activo
		   AND (nombres_busqueda ILIKE $1 OR rut ILIKE $1 OR lower(email) LIKE lower($1))
		 ORDER BY apellidos, nombres
		 LIMIT $2`,
		folded, limit)
	if err != nil {
		return nil, fmt.Errorf("buscar personas: %w", err)
	}
	defer rows.Close()

	var out []Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateTx inserts the persona inside the caller's transaction and fills
// in the generated ID and timestamps. nombres_busqueda stores the
// accent-folded name used by Search.
func CreateTx(ctx context.Context, tx pgx.Tx, p *Persona) error {
	return tx.QueryRow(ctx,
		`INSERT INTO personas
			(id, nombres, apellidos, nombres_busqueda, rut, email,
			 telefono, direccion, comuna_id, region_id, fecha_nacimiento, activo)
		 VALUES (gen_random_uuid(), $1, $2, $3, $4, lower($5),
			 NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)
		 RETURNING id, creado_en, actualizado_en`,
		p.Nombres, p.Apellidos, Fold(p.NombreCompleto()), p.Rut, p.Email,
		p.Telefono, p.Direccion, p.ComunaID, p.RegionID, p.FechaNac, p.Activo,
	).Scan(&p.ID, &p.CreadoEn, &p.ActualizadoEn)
}

// UpdateTx rewrites the persona's editable fields inside the caller's
// transaction.
func UpdateTx(ctx context.Context, tx pgx.Tx, p *Persona) error {
	tag, err := tx.Exec(ctx,
		`UPDATE personas SET
			nombres = $2, apellidos = $3, nombres_busqueda = $4,
			rut = $5, email = lower($6),
			telefono = NULLIF($7, ''), direccion = NULLIF($8, ''),
			comuna_id = $9, region_id = $10, fecha_nacimiento = $11,
			activo = $12, actualizado_en = now()
		 WHERE id = $1`,
		p.ID, p.Nombres, p.Apellidos, Fold(p.NombreCompleto()),
		p.Rut, p.Email, p.Telefono, p.Direccion,
		p.ComunaID, p.RegionID, p.FechaNac, p.Activo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateTx soft deletes the persona inside the caller's transaction.
func DeactivateTx(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE personas SET activo = false, actualizado_en = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersona(row rowScanner) (Persona, error) {
	var p Persona
	err := row.Scan(&p.ID, &p.Nombres, &p.Apellidos, &p.Rut, &p.Email,
		&p.Telefono, &p.Direccion, &p.ComunaID, &p.RegionID, &p.FechaNac,
		&p.Activo, &p.CreadoEn, &p.ActualizadoEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return Persona{}, ErrNotFound
	}
	return p, err
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips diacritics for accent-insensitive matching.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
