package testutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireReturnsWithin runs f on its own goroutine and fails the test unless f
// returns before timeout. f runs off the test goroutine, so it must record its
// results for the caller to assert on instead of calling require itself.
func RequireReturnsWithin(t *testing.T, timeout time.Duration, what string, f func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	RequireClosedWithin(t, done, timeout, what)
}

// RequireClosedWithin fails the test unless done is closed before timeout.
func RequireClosedWithin(t *testing.T, done <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(timeout):
		require.Failf(t, "timed out", "%s did not finish within %s", what, timeout)
	}
}
