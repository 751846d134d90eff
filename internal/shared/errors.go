package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates too many failed login attempts.
	ErrAccountLocked = errors.New("account locked")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// userSafe lists errors whose message may be shown to end users as-is.
var userSafe = []error{
	ErrNotFound,
	ErrInvalidCredentials,
	ErrAccountLocked,
}

// UserSafeMessage returns a message suitable for display. Unknown errors
// collapse to a generic message so internals never leak to the UI.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, safe := range userSafe {
		if errors.Is(err, safe) {
			return err.Error()
		}
	}
	return "Ha ocurrido un error inesperado"
}
