package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andescare/clinica/internal/shared"
)

type Repository interface {
	FindLoginByEmail(ctx context.Context, email string) (Login, error)
	RecordFailure(ctx context.Context, credencialID string, lockAfter int, lockFor time.Duration) error
	ResetFailures(ctx context.Context, credencialID string) error
	TouchLastAccess(ctx context.Context, usuarioID string) error
	SetPassword(ctx context.Context, credencialID, hash string, mustChange bool) error
	AuthInfo(ctx context.Context, usuarioID string) (shared.AuthContext, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) FindLoginByEmail(ctx context.Context, email string) (Login, error) {
	var l Login
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, p.id, u.id, p.email,
			p.nombres || ' ' || p.apellidos, ro.nombre,
			c.password_hash, u.activo AND p.activo, c.debe_cambiar_password,
			c.intentos_fallidos, c.bloqueado_hasta
		 FROM personas p
		 JOIN credenciales c ON c.persona_id = p.id
		 JOIN usuarios_sistema u ON u.persona_id = p.id
		 JOIN roles ro ON ro.id = u.rol_id
		 WHERE lower(p.email) = lower($1)`,
		email).Scan(&l.CredencialID, &l.PersonaID, &l.UsuarioID, &l.Email,
		&l.Nombre, &l.Rol, &l.PasswordHash, &l.Activo, &l.DebeCambiarPassword,
		&l.IntentosFallidos, &l.BloqueadoHasta)
	if errors.Is(err, pgx.ErrNoRows) {
		return Login{}, ErrInvalidCredentials
	}
	return l, err
}

// RecordFailure bumps the failure counter and opens a lockout window when
// the threshold is reached, in one statement so concurrent bad logins
// cannot race past the limit.
func (r *PGRepository) RecordFailure(ctx context.Context, credencialID string, lockAfter int, lockFor time.Duration) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE credenciales SET
			intentos_fallidos = intentos_fallidos + 1,
			bloqueado_hasta = CASE
				WHEN intentos_fallidos + 1 >= $2 THEN now() + $3::interval
				ELSE bloqueado_hasta
			END,
			actualizado_en = now()
		 WHERE id = $1`,
		credencialID, lockAfter, lockFor.String())
	return err
}

func (r *PGRepository) ResetFailures(ctx context.Context, credencialID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE credenciales SET intentos_fallidos = 0, bloqueado_hasta = NULL, actualizado_en = now()
		 WHERE id = $1`, credencialID)
	return err
}

func (r *PGRepository) TouchLastAccess(ctx context.Context, usuarioID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE usuarios_sistema SET ultimo_acceso = now() WHERE id = $1`, usuarioID)
	return err
}

func (r *PGRepository) SetPassword(ctx context.Context, credencialID, hash string, mustChange bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE credenciales SET
			password_hash = $2, debe_cambiar_password = $3,
			intentos_fallidos = 0, bloqueado_hasta = NULL, actualizado_en = now()
		 WHERE id = $1`,
		credencialID, hash, mustChange)
	return err
}

// AuthInfo resolves a session's user ID into the actor context attached
// to every request. Inactive accounts resolve to nothing so a deletion
// takes effect on the next request, not the next login.
func (r *PGRepository) AuthInfo(ctx context.Context, usuarioID string) (shared.AuthContext, error) {
	var a shared.AuthContext
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, p.id, p.email, ro.nombre
		 FROM usuarios_sistema u
		 JOIN personas p ON p.id = u.persona_id
		 JOIN roles ro ON ro.id = u.rol_id
		 WHERE u.id = $1 AND u.activo AND p.activo`,
		usuarioID).Scan(&a.UsuarioID, &a.PersonaID, &a.Email, &a.Rol)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.AuthContext{}, ErrNoSession
	}
	return a, err
}
