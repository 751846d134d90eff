package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ActiveUserCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM usuarios_sistema u
		 JOIN personas p ON p.id = u.persona_id
		 WHERE u.activo AND p.activo`).Scan(&n)
	return n, err
}

func (r *PGRepository) CitasTodayCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM citas
		 WHERE inicio >= date_trunc('day', now())
		   AND inicio < date_trunc('day', now()) + interval '1 day'
		   AND estado <> 'CANCELADA'`).Scan(&n)
	return n, err
}

func (r *PGRepository) PendingExamCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM examenes WHERE estado = 'PENDIENTE'`).Scan(&n)
	return n, err
}

func (r *PGRepository) LoginCountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM logs_acceso
		 WHERE accion = 'LOGIN' AND resultado = 'SUCCESS' AND creado_en >= $1`,
		since).Scan(&n)
	return n, err
}
