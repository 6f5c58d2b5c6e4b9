// Package testutils provides testing utilities for the compilation service:
// loggers, temporary directories and fake fuelup/forc executables that stand
// in for the real Fuel toolchain. This package is intended for testing purposes
// only and should not be used in production code.
package testutils

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// Logger returns a zerolog.Logger configured for testing.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(os.Stdout).Level(zerolog.DebugLevel)
}
