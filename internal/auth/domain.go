// Package auth handles staff login, logout and password lifecycle, and
// builds the per-request actor context the rest of the system reads.
package auth

import "time"

// Login joins everything needed to authenticate one email: the persona,
// its credential and its system user row.
type Login struct {
	CredencialID        string
	PersonaID           string
	UsuarioID           string
	Email               string
	Nombre              string
	Rol                 string
	PasswordHash        string
	Activo              bool
	DebeCambiarPassword bool
	IntentosFallidos    int
	BloqueadoHasta      *time.Time
}

// Locked reports whether the credential is inside a lockout window.
func (l Login) Locked(now time.Time) bool {
	return l.BloqueadoHasta != nil && now.Before(*l.BloqueadoHasta)
}

const (
	// maxLoginFailures locks a credential after this many consecutive
	// bad passwords.
	maxLoginFailures = 5
	// lockoutWindow is how long a locked credential stays locked.
	lockoutWindow = 15 * time.Minute
)
