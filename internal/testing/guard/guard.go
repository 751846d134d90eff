// Package guard marks the process as a test run before any package init
// reads the flag. Tests that exercise runtime wiring blank-import it.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CLINICA_TEST_MODE") == "" {
			_ = os.Setenv("CLINICA_TEST_MODE", "1")
		}
	})
}
