package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// waitDelay bounds how long a killed command may keep its output pipes open.
const waitDelay = time.Second

// ProcessOutput is the observable result of an external command.
type ProcessOutput struct {
	// ExitCode is the process exit code.
	ExitCode int
	// Stdout holds everything the process wrote to standard output.
	Stdout []byte
	// Stderr holds everything the process wrote to standard error.
	Stderr []byte
	// Duration is the wall time the process ran for.
	Duration time.Duration
}

// Success returns true if the process exited with status zero.
func (o ProcessOutput) Success() bool {
	return o.ExitCode == 0
}

// Manager runs fuelup and forc.
type Manager struct {
	logger    zerolog.Logger
	forcBin   string
	fuelupBin string
}

// NewManager returns a Manager invoking the given forc and fuelup executables.
// Each may be a bare name resolved through PATH or a path.
func NewManager(logger zerolog.Logger, forcBin, fuelupBin string) *Manager {
	return &Manager{
		logger:    logger.With().Str("component", "toolchain-manager").Logger(),
		forcBin:   forcBin,
		fuelupBin: fuelupBin,
	}
}

// LookPath checks that both executables can be found.
func (m *Manager) LookPath() error {
	if _, err := exec.LookPath(m.forcBin); err != nil {
		return fmt.Errorf("forc not found: %w", err)
	}
	if _, err := exec.LookPath(m.fuelupBin); err != nil {
		return fmt.Errorf("fuelup not found: %w", err)
	}
	return nil
}

// Switch makes name the host-wide default toolchain.
func (m *Manager) Switch(ctx context.Context, name string) error {
	out, err := m.run(ctx, "", m.fuelupBin, "default", name)
	if err != nil {
		return fmt.Errorf("switch toolchain %q: %w", name, err)
	}
	if !out.Success() {
		return fmt.Errorf("switch toolchain %q: exit status %d: %s",
			name, out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return nil
}

// ForcVersion returns the version reported by `forc --version`, trimmed of
// surrounding whitespace. When dir is non-empty the command runs inside it, so
// a toolchain pinned in that directory applies.
func (m *Manager) ForcVersion(ctx context.Context, dir string) (string, error) {
	out, err := m.run(ctx, dir, m.forcBin, "--version")
	if err != nil {
		return "", fmt.Errorf("forc version: %w", err)
	}
	if !out.Success() {
		return "", fmt.Errorf("forc version: exit status %d: %s",
			out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

// Build runs `forc build` against the project at projectDir and waits for it to
// exit. A failed compilation is reported through the returned ProcessOutput,
// not as an error; the error is reserved for commands that could not be run or
// were interrupted by ctx.
func (m *Manager) Build(ctx context.Context, projectDir string) (ProcessOutput, error) {
	out, err := m.run(ctx, projectDir, m.forcBin, "build", "--path", projectDir)
	if err != nil {
		return out, fmt.Errorf("forc build: %w", err)
	}
	return out, nil
}

func (m *Manager) run(ctx context.Context, dir, bin string, args ...string) (ProcessOutput, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := ProcessOutput{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		m.logger.Warn().
			Str("cmd", bin).
			Strs("args", args).
			Dur("duration", out.Duration).
			Err(ctxErr).
			Msg("command interrupted")
		return out, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	case err != nil:
		return out, fmt.Errorf("run %s: %w", bin, err)
	}

	m.logger.Debug().
		Str("cmd", bin).
		Strs("args", args).
		Int("exit_code", out.ExitCode).
		Dur("duration", out.Duration).
		Msg("command finished")
	return out, nil
}
