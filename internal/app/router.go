package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/auth"
	"github.com/andescare/clinica/internal/clinical"
	"github.com/andescare/clinica/internal/masterdata"
	"github.com/andescare/clinica/internal/observability"
	"github.com/andescare/clinica/internal/rbac"
	"github.com/andescare/clinica/internal/reports"
	"github.com/andescare/clinica/internal/shared"
	"github.com/andescare/clinica/internal/staff"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Auth        *auth.Middleware
	CSRFManager *shared.CSRFManager
	Metrics     *observability.Metrics
	Pool        *pgxpool.Pool

	AuthHandler       *auth.Handler
	StaffHandler      *staff.Handler
	RBACHandler       *rbac.Handler
	AuditHandler      *audit.Handler
	ClinicalHandler   *clinical.Handler
	ReportsHandler    *reports.Handler
	MasterdataHandler *masterdata.Handler
}

// NewRouter constructs the chi.Router for the clinic API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		Auth:        params.Auth,
		CSRFManager: params.CSRFManager,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", params.Metrics.Handler())

	loginLimiter := LoginRateLimiter(0)
	if params.Config != nil {
		loginLimiter = LoginRateLimiter(params.Config.LoginRatePerMinute)
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			params.AuthHandler.MountRoutes(ar, loginLimiter)
		})

		// Everything below needs an authenticated system user.
		api.Group(func(priv chi.Router) {
			priv.Use(rbac.RequireStaff)
			priv.Route("/me", params.RBACHandler.MountSelfRoutes)
			params.ClinicalHandler.MountRoutes(priv)
			params.ReportsHandler.MountRoutes(priv)
			params.MasterdataHandler.MountRoutes(priv)

			priv.Route("/admin", func(admin chi.Router) {
				admin.Use(rbac.RequireAdmin)
				params.StaffHandler.MountAdminRoutes(admin)
				params.RBACHandler.MountAdminRoutes(admin)
				admin.Route("/audit", params.AuditHandler.MountRoutes)
			})
		})
	})

	return r
}
