package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/shared"
)

const (
	AccionLogin        = "LOGIN"
	AccionLogout       = "LOGOUT"
	AccionCambiarClave = "CAMBIAR_PASSWORD"
	minPasswordLength  = 8
)

type Service struct {
	repo   Repository
	audit  audit.Recorder
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: recorder, logger: logger, now: time.Now}
}

// Login authenticates an email/password pair. Failures are counted and
// the credential locks for a window after too many, regardless of
// whether the email exists the caller sees the same error.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (Login, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Login{}, ErrInvalidCredentials
	}

	login, err := s.repo.FindLoginByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.recordAttempt(ctx, "", email, ip, userAgent, audit.ResultDenied)
		}
		return Login{}, err
	}

	if login.Locked(s.now()) {
		s.recordAttempt(ctx, login.UsuarioID, email, ip, userAgent, audit.ResultDenied)
		return Login{}, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(password)); err != nil {
		if err := s.repo.RecordFailure(ctx, login.CredencialID, maxLoginFailures, lockoutWindow); err != nil {
			s.logger.Error("auth: record failure", slog.Any("error", err))
		}
		s.recordAttempt(ctx, login.UsuarioID, email, ip, userAgent, audit.ResultDenied)
		return Login{}, ErrInvalidCredentials
	}

	if !login.Activo {
		s.recordAttempt(ctx, login.UsuarioID, email, ip, userAgent, audit.ResultDenied)
		return Login{}, ErrAccountInactive
	}

	if err := s.repo.ResetFailures(ctx, login.CredencialID); err != nil {
		s.logger.Error("auth: reset failures", slog.Any("error", err))
	}
	if err := s.repo.TouchLastAccess(ctx, login.UsuarioID); err != nil {
		s.logger.Error("auth: touch last access", slog.Any("error", err))
	}

	s.recordAttempt(ctx, login.UsuarioID, email, ip, userAgent, audit.ResultSuccess)
	return login, nil
}

// Logout records the event; session teardown happens in the handler.
func (s *Service) Logout(ctx context.Context, auth *shared.AuthContext, ip, userAgent string) {
	if auth == nil {
		return
	}
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionLogout,
		Recurso:   "sesiones",
		Resultado: audit.ResultSuccess,
		IP:        ip,
		UserAgent: userAgent,
	})
}

// ChangePassword verifies the current password and installs the new one,
// clearing the must-change flag and any lockout state.
func (s *Service) ChangePassword(ctx context.Context, auth *shared.AuthContext, current, next string) error {
	if auth == nil {
		return ErrNoSession
	}
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}

	login, err := s.repo.FindLoginByEmail(ctx, auth.Email)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPassword(ctx, login.CredencialID, string(hash), false); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		UsuarioID: auth.UsuarioID,
		Accion:    AccionCambiarClave,
		Recurso:   "credenciales",
		Resultado: audit.ResultSuccess,
	})
	return nil
}

func (s *Service) recordAttempt(ctx context.Context, usuarioID, email, ip, userAgent, result string) {
	s.audit.Record(ctx, audit.Entry{
		UsuarioID: usuarioID,
		Accion:    AccionLogin,
		Recurso:   "sesiones",
		Detalle:   map[string]any{"email": email},
		Resultado: result,
		IP:        ip,
		UserAgent: userAgent,
	})
}
