package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andescare/clinica/internal/audit"
	"github.com/andescare/clinica/internal/shared"
	_ "github.com/andescare/clinica/internal/testing/guard"
)

type mockAuthRepo struct {
	logins   map[string]*Login // by email
	failures map[string]int    // credencialID -> count
	locked   map[string]time.Time
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		logins:   make(map[string]*Login),
		failures: make(map[string]int),
		locked:   make(map[string]time.Time),
	}
}

func (m *mockAuthRepo) addUser(email, password string) *Login {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	l := &Login{
		CredencialID: "cred-" + email,
		PersonaID:    "per-" + email,
		UsuarioID:    "usr-" + email,
		Email:        email,
		Nombre:       "Usuario Prueba",
		Rol:          "KINESIOLOGO",
		PasswordHash: string(hash),
		Activo:       true,
	}
	m.logins[email] = l
	return l
}

func (m *mockAuthRepo) FindLoginByEmail(ctx context.Context, email string) (Login, error) {
	l, ok := m.logins[email]
	if !ok {
		return Login{}, ErrInvalidCredentials
	}
	out := *l
	out.IntentosFallidos = m.failures[l.CredencialID]
	if until, locked := m.locked[l.CredencialID]; locked {
		out.BloqueadoHasta = &until
	}
	return out, nil
}

func (m *mockAuthRepo) RecordFailure(ctx context.Context, credencialID string, lockAfter int, lockFor time.Duration) error {
	m.failures[credencialID]++
	if m.failures[credencialID] >= lockAfter {
		m.locked[credencialID] = time.Now().Add(lockFor)
	}
	return nil
}

func (m *mockAuthRepo) ResetFailures(ctx context.Context, credencialID string) error {
	delete(m.failures, credencialID)
	delete(m.locked, credencialID)
	return nil
}

func (m *mockAuthRepo) TouchLastAccess(ctx context.Context, usuarioID string) error { return nil }

func (m *mockAuthRepo) SetPassword(ctx context.Context, credencialID, hash string, mustChange bool) error {
	for _, l := range m.logins {
		if l.CredencialID == credencialID {
			l.PasswordHash = hash
			l.DebeCambiarPassword = mustChange
			return nil
		}
	}
	return ErrInvalidCredentials
}

func (m *mockAuthRepo) AuthInfo(ctx context.Context, usuarioID string) (shared.AuthContext, error) {
	for _, l := range m.logins {
		if l.UsuarioID == usuarioID && l.Activo {
			return shared.AuthContext{
				UsuarioID: l.UsuarioID, PersonaID: l.PersonaID,
				Email: l.Email, Rol: l.Rol,
			}, nil
		}
	}
	return shared.AuthContext{}, ErrNoSession
}

type nullSink struct{}

func (nullSink) Record(ctx context.Context, entry audit.Entry) {}

func newTestServer(t *testing.T, repo *mockAuthRepo) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, "clinica_session", time.Hour, false)
	csrf := shared.NewCSRFManager("test-secret")
	service := NewService(repo, nullSink{}, logger)
	handler := NewHandler(logger, service, sessions, csrf)
	mw := NewMiddleware(sessions, repo, logger)

	r := chi.NewRouter()
	r.Use(mw.WithSession, mw.WithAuth)
	r.Route("/auth", func(ar chi.Router) { handler.MountRoutes(ar, nil) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestLoginSuccessSetsSession(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser("kine@clinica.cl", "clave-correcta")
	srv := newTestServer(t, repo)
	client := srv.Client()
	jar := newCookieClient(t, client)

	resp := postJSON(t, jar, srv.URL+"/auth/login",
		`{"email":"kine@clinica.cl","password":"clave-correcta"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		User struct {
			Rol string `json:"rol"`
		} `json:"user"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "KINESIOLOGO", body.User.Rol)
	assert.NotEmpty(t, body.CSRFToken)

	var sessionCookie bool
	for _, c := range resp.Cookies() {
		if c.Name == "clinica_session" && c.Value != "" {
			sessionCookie = true
		}
	}
	assert.True(t, sessionCookie, "login must set the session cookie")

	// The cookie now authenticates follow-up requests.
	meResp, err := jar.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	defer meResp.Body.Close()
	assert.Equal(t, http.StatusOK, meResp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser("kine@clinica.cl", "clave-correcta")
	srv := newTestServer(t, repo)

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"kine@clinica.cl","password":"clave-mala"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "Credenciales inválidas")
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	srv := newTestServer(t, newMockAuthRepo())

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"nadie@clinica.cl","password":"lo-que-sea"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "Credenciales inválidas")
}

func TestLoginLockout(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser("kine@clinica.cl", "clave-correcta")
	srv := newTestServer(t, repo)
	client := srv.Client()

	for i := 0; i < maxLoginFailures; i++ {
		resp := postJSON(t, client, srv.URL+"/auth/login",
			`{"email":"kine@clinica.cl","password":"clave-mala"}`)
		resp.Body.Close()
	}

	// Even the right password is refused while locked.
	resp := postJSON(t, client, srv.URL+"/auth/login",
		`{"email":"kine@clinica.cl","password":"clave-correcta"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "bloqueada")
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser("kine@clinica.cl", "clave-correcta")
	srv := newTestServer(t, repo)
	jar := newCookieClient(t, srv.Client())

	resp := postJSON(t, jar, srv.URL+"/auth/login",
		`{"email":"kine@clinica.cl","password":"clave-correcta"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, jar, srv.URL+"/auth/logout", `{}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	meResp, err := jar.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	defer meResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser("kine@clinica.cl", "clave-vieja-larga")
	srv := newTestServer(t, repo)
	jar := newCookieClient(t, srv.Client())

	resp := postJSON(t, jar, srv.URL+"/auth/login",
		`{"email":"kine@clinica.cl","password":"clave-vieja-larga"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Wrong current password.
	resp = postJSON(t, jar, srv.URL+"/auth/change-password",
		`{"current_password":"equivocada","new_password":"clave-nueva-larga"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Too short replacement.
	resp = postJSON(t, jar, srv.URL+"/auth/change-password",
		`{"current_password":"clave-vieja-larga","new_password":"corta"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Happy path.
	resp = postJSON(t, jar, srv.URL+"/auth/change-password",
		`{"current_password":"clave-vieja-larga","new_password":"clave-nueva-larga"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := repo.logins["kine@clinica.cl"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte("clave-nueva-larga")))
	assert.False(t, login.DebeCambiarPassword)
}

// newCookieClient clones the test client with a cookie jar so session
// cookies survive across requests.
func newCookieClient(t *testing.T, base *http.Client) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Transport: base.Transport, Jar: jar}
}
