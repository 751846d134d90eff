package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andescare/clinica/internal/shared"
)

// Middleware loads the session and resolves the actor behind it exactly
// once per request. Downstream code reads shared.AuthFromContext instead
// of touching the session store again.
type Middleware struct {
	sessions *shared.SessionManager
	repo     Repository
	logger   *slog.Logger
}

func NewMiddleware(sessions *shared.SessionManager, repo Repository, logger *slog.Logger) *Middleware {
	return &Middleware{sessions: sessions, repo: repo, logger: logger}
}

// sessionWriter commits the session right before the first byte of the
// response, since cookies cannot be written after the header goes out.
type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionWriter) WriteHeader(status int) {
	if !w.committed {
		w.committed = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// WithSession loads (or creates) the request session and arranges for it
// to be committed with the response.
func (m *Middleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.sessions.Load(r.Context(), r)
		if err != nil {
			m.logger.Error("session load", slog.Any("error", err))
			http.Error(w, "Ha ocurrido un error inesperado", http.StatusInternalServerError)
			return
		}

		ctx := shared.ContextWithSession(r.Context(), sess)
		sw := &sessionWriter{ResponseWriter: w, commit: func() {
			if err := m.sessions.Commit(ctx, w, sess); err != nil {
				m.logger.Error("session commit", slog.Any("error", err))
			}
		}}
		next.ServeHTTP(sw, r.WithContext(ctx))
	})
}

// WithAuth resolves the session's user into an AuthContext. Anonymous
// and stale sessions pass through unauthenticated; route guards decide
// what that means.
func (m *Middleware) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}

		info, err := m.repo.AuthInfo(r.Context(), sess.User())
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				m.logger.Error("auth resolve", slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := shared.ContextWithAuth(r.Context(), &info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
