package testutils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDir is a utility struct for managing temporary directories in tests.
type TempDir struct {
	t    *testing.T
	path string
}

// NewTempDir creates a temporary directory and registers cleanup with the test.
func NewTempDir(t *testing.T) *TempDir {
	t.Helper()
	path, err := os.MkdirTemp("", "swaypad-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		require.NoError(t, os.RemoveAll(path), "failed to remove temp dir: "+path)
	})
	return &TempDir{t: t, path: path}
}

// Path returns the path of the temporary directory.
func (td *TempDir) Path() string {
	return td.path
}

// RequireEmptyDir fails the test if dir holds anything other than the entries in allowed.
// A missing dir counts as empty.
func RequireEmptyDir(t *testing.T, dir string, allowed ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)

	skip := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		skip[a] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := skip[e.Name()]; ok {
			continue
		}
		require.Failf(t, "directory not empty", "%s still contains %s", dir, e.Name())
	}
}
