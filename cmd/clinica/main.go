package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/andescare/clinica/internal/app"
	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/auth"
	"github.com/andescare/clinica/internal/clinical"
	"github.com/andescare/clinica/internal/masterdata"
	"github.com/andescare/clinica/internal/observability"
	"github.com/andescare/clinica/internal/platform/db"
	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/reports"
	"github.com/andescare/clinica/internal/shared"
	"github.com/andescare/clinica/internal/staff"
	"github.com/andescare/clinica/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "clinica_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	recorder := audit.NewRecorder(pool, logger, metrics)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewNotifier(asynqClient, logger)

	authRepo := auth.NewPGRepository(pool)
	authService := auth.NewService(authRepo, recorder, logger)
	authMiddleware := auth.NewMiddleware(sessionManager, authRepo, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacRepo := rbac.NewPGRepository(pool)
	rbacService := rbac.NewService(rbacRepo, recorder, metrics, logger)
	rbacHandler := rbac.NewHandler(logger, rbacService)

	staffRepo := staff.NewPGRepository(pool)
	staffService := staff.NewService(staffRepo, rbacRepo, recorder, notifier, logger)
	staffHandler := staff.NewHandler(logger, staffService)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	clinicalRepo := clinical.NewPGRepository(pool)
	clinicalService := clinical.NewService(clinicalRepo, rbacRepo, recorder, logger)
	clinicalHandler := clinical.NewHandler(logger, clinicalService)

	reportsRepo := reports.NewPGRepository(pool)
	reportsService := reports.NewService(reportsRepo, rbacRepo, redisClient, cfg.ReportCacheTTL, logger)
	reportsHandler := reports.NewHandler(reportsService)

	masterdataHandler := masterdata.NewHandler(masterdata.NewPGRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Auth:              authMiddleware,
		CSRFManager:       csrfManager,
		Metrics:           metrics,
		Pool:              pool,
		AuthHandler:       authHandler,
		StaffHandler:      staffHandler,
		RBACHandler:       rbacHandler,
		AuditHandler:      auditHandler,
		ClinicalHandler:   clinicalHandler,
		ReportsHandler:    reportsHandler,
		MasterdataHandler: masterdataHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
