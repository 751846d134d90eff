package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andescare/clinica/internal/observability"
)

// Recorder appends entries to the access log. Implementations must never
// fail the caller's mutation: a lost log line is preferable to a lost write.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// PGRecorder writes entries into logs_acceso.
type PGRecorder struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRecorder returns a PGRecorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *PGRecorder {
	return &PGRecorder{pool: pool, logger: logger, metrics: metrics}
}

// Record persists the entry. Failures are logged and swallowed.
func (r *PGRecorder) Record(ctx context.Context, entry Entry) {
	if entry.Resultado == "" {
		entry.Resultado = ResultSuccess
	}
	if entry.Recurso == "" {
		entry.Recurso = "SYSTEM"
	}
	if entry.CreadoEn.IsZero() {
		entry.CreadoEn = time.Now().UTC()
	}

	var detalle []byte
	if entry.Detalle != nil {
		var err error
		detalle, err = json.Marshal(entry.Detalle)
		if err != nil {
			r.logger.Error("audit marshal detail", slog.Any("error", err))
			detalle = nil
		}
	}

	var usuarioID any
	if entry.UsuarioID != "" {
		usuarioID = entry.UsuarioID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO logs_acceso (usuario_id, accion, recurso, recurso_id, detalle, resultado, ip_address, user_agent, creado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		usuarioID, entry.Accion, entry.Recurso, nullable(entry.RecursoID), detalle,
		entry.Resultado, nullable(entry.IP), nullable(entry.UserAgent), entry.CreadoEn,
	)
	if err != nil {
		r.logger.Error("audit write failed", slog.Any("error", err), slog.String("accion", entry.Accion))
		r.metrics.CountAuditWrite("error")
		return
	}
	r.metrics.CountAuditWrite("ok")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Recorder = (*PGRecorder)(nil)
