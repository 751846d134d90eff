package clinical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	FichaByPaciente(ctx context.Context, pacienteID string) (FichaClinica, error)
	ExamenesByFicha(ctx context.Context, fichaID string) ([]Examen, error)
	AddExamen(ctx context.Context, e *Examen) error
	CitasBetween(ctx context.Context, from, to time.Time) ([]Cita, error)
	CitaByID(ctx context.Context, id string) (Cita, error)
	SetCitaEstado(ctx context.Context, id, estado string) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) FichaByPaciente(ctx context.Context, pacienteID string) (FichaClinica, error) {
	var f FichaClinica
	err := r.pool.QueryRow(ctx,
		`SELECT f.id, f.paciente_id, p.nombres || ' ' || p.apellidos, p.rut,
			COALESCE(f.diagnostico, ''), COALESCE(f.antecedentes, ''),
			f.creado_en, f.actualizado_en
		 FROM fichas_clinicas f
		 JOIN personas p ON p.id = f.paciente_id
		 WHERE f.paciente_id = $1`,
		pacienteID).Scan(&f.ID, &f.PacienteID, &f.Paciente, &f.Rut,
		&f.Diagnostico, &f.Antecedentes, &f.CreadoEn, &f.ActualizadoEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return FichaClinica{}, ErrFichaNotFound
	}
	return f, err
}

func (r *PGRepository) ExamenesByFicha(ctx context.Context, fichaID string) ([]Examen, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ficha_id, tipo, COALESCE(resultado, ''), estado, tomado_en, creado_en
		 FROM examenes
		 WHERE ficha_id = $1
		 ORDER BY creado_en DESC`,
		fichaID)
	if err != nil {
		return nil, fmt.Errorf("listar examenes: %w", err)
	}
	defer rows.Close()

	var out []Examen
	for rows.Next() {
		var e Examen
		if err := rows.Scan(&e.ID, &e.FichaID, &e.Tipo, &e.Resultado,
			&e.Estado, &e.TomadoEn, &e.CreadoEn); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) AddExamen(ctx context.Context, e *Examen) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO examenes (id, ficha_id, tipo, resultado, estado, tomado_en)
		 VALUES (gen_random_uuid(), $1, $2, NULLIF($3, ''), $4, $5)
		 RETURNING id, creado_en`,
		e.FichaID, e.Tipo, e.Resultado, e.Estado, e.TomadoEn,
	).Scan(&e.ID, &e.CreadoEn)
}

const citaColumns = `c.id, c.paciente_id, pac.nombres || ' ' || pac.apellidos,
	c.profesional_id, prof.nombres || ' ' || prof.apellidos,
	c.inicio, c.fin, c.estado, COALESCE(c.motivo, ''), c.creado_en`

const citaFrom = ` FROM citas c
	JOIN personas pac ON pac.id = c.paciente_id
	JOIN usuarios_sistema us ON us.id = c.profesional_id
	JOIN personas prof ON prof.id = us.persona_id`

func (r *PGRepository) CitasBetween(ctx context.Context, from, to time.Time) ([]Cita, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+citaColumns+citaFrom+`
		 WHERE c.inicio >= $1 AND c.inicio < $2
		 ORDER BY c.inicio`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("listar citas: %w", err)
	}
	defer rows.Close()

	var out []Cita
	for rows.Next() {
		c, err := scanCita(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) CitaByID(ctx context.Context, id string) (Cita, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+citaColumns+citaFrom+` WHERE c.id = $1`, id)
	return scanCita(row)
}

func (r *PGRepository) SetCitaEstado(ctx context.Context, id, estado string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE citas SET estado = $2, actualizado_en = now() WHERE id = $1`, id, estado)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCitaNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCita(row rowScanner) (Cita, error) {
	var c Cita
	err := row.Scan(&c.ID, &c.PacienteID, &c.Paciente,
		&c.ProfesionalID, &c.Profesional,
		&c.Inicio, &c.Fin, &c.Estado, &c.Motivo, &c.CreadoEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cita{}, ErrCitaNotFound
	}
	return c, err
}
