package masterdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListRegions(ctx context.Context) ([]Region, error)
	ListComunas(ctx context.Context, regionID int) ([]Comuna, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nombre, orden FROM regiones ORDER BY orden`)
	if err != nil {
		return nil, fmt.Errorf("listar regiones: %w", err)
	}
	defer rows.Close()

	var out []Region
	for rows.Next() {
		var reg Region
		if err := rows.Scan(&reg.ID, &reg.Nombre, &reg.Orden); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListComunas(ctx context.Context, regionID int) ([]Comuna, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, region_id, nombre FROM comunas WHERE region_id = $1 ORDER BY nombre`,
		regionID)
	if err != nil {
		return nil, fmt.Errorf("listar comunas: %w", err)
	}
	defer rows.Close()

	var out []Comuna
	for rows.Next() {
		var c Comuna
		if err := rows.Scan(&c.ID, &c.RegionID, &c.Nombre); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
