package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/andescare/clinica/internal/jobs"
)

// NewAuditRetentionHandler builds the nightly sweep over logs_acceso.
// The access log is append-only, so the sweep never removes rows: it
// measures how many have aged past the retention window and surfaces the
// count through logs and metrics for the operators running the archive.
func NewAuditRetentionHandler(pool *pgxpool.Pool, retentionDays int, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if retentionDays <= 0 {
		retentionDays = 365
	}

	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("audit_retention")
		cutoff := time.Now().AddDate(0, 0, -retentionDays)

		var aged int64
		err := pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM logs_acceso WHERE creado_en < $1`,
			cutoff).Scan(&aged)
		if err != nil {
			return tracker.End(err)
		}

		metrics.SetAgedAuditRows(aged)
		logger.Info("audit retention sweep",
			slog.Int64("rows_beyond_retention", aged),
			slog.Time("cutoff", cutoff))
		return tracker.End(nil)
	}
}
