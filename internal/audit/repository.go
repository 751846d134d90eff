package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the access log from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineBase = `
	SELECT l.creado_en, COALESCE(p.email, ''), l.accion, l.recurso,
	       COALESCE(l.recurso_id, ''), COALESCE(l.detalle::text, ''),
	       l.resultado, COALESCE(l.ip_address, '')
	FROM logs_acceso l
	LEFT JOIN usuarios_sistema us ON us.id = l.usuario_id
	LEFT JOIN personas p ON p.id = us.persona_id`

// TimelineWindow returns one page of log rows, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	where, args := timelineConditions(filters)
	query := fmt.Sprintf("%s%s ORDER BY l.creado_en DESC LIMIT $%d OFFSET $%d",
		timelineBase, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return r.queryRows(ctx, query, args)
}

// TimelineAll returns every matching row, newest first.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	where, args := timelineConditions(filters)
	query := timelineBase + where + " ORDER BY l.creado_en DESC"
	return r.queryRows(ctx, query, args)
}

func (r *PGRepository) queryRows(ctx context.Context, query string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var at pgtype.Timestamptz
		if err := rows.Scan(&at, &row.Actor, &row.Accion, &row.Recurso,
			&row.RecursoID, &row.Detalle, &row.Resultado, &row.IP); err != nil {
			return nil, err
		}
		if at.Valid {
			row.At = at.Time
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func timelineConditions(filters TimelineFilters) (string, []any) {
	var conds []string
	var args []any

	if !filters.From.IsZero() {
		args = append(args, filters.From)
		conds = append(conds, fmt.Sprintf("l.creado_en >= $%d", len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		conds = append(conds, fmt.Sprintf("l.creado_en <= $%d", len(args)))
	}
	if actor := strings.TrimSpace(filters.Actor); actor != "" {
		args = append(args, actor)
		conds = append(conds, fmt.Sprintf("p.email = $%d", len(args)))
	}
	if accion := strings.TrimSpace(filters.Accion); accion != "" {
		args = append(args, accion)
		conds = append(conds, fmt.Sprintf("l.accion = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var _ Repository = (*PGRepository)(nil)
