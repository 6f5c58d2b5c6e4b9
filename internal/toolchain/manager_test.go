package toolchain_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thep2p/swaypad-compiler/internal/model"
	"github.com/thep2p/swaypad-compiler/internal/project"
	"github.com/thep2p/swaypad-compiler/internal/testutils"
	"github.com/thep2p/swaypad-compiler/internal/toolchain"
)

// stageProject creates a project holding src and returns it.
func stageProject(t *testing.T, src string) project.Project {
	t.Helper()
	stager := project.NewStager(testutils.Logger(t), testutils.NewTempDir(t).Path())
	p, err := stager.Create()
	require.NoError(t, err)
	require.NoError(t, stager.WriteMainFile(p, []byte(src)))
	return p
}

// TestSwitchSelectsToolchain verifies fuelup is invoked with the requested toolchain.
func TestSwitchSelectsToolchain(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)

	require.NoError(t, m.Switch(context.Background(), "beta-5"))
	require.Equal(t, "beta-5", fake.ActiveToolchain())
	require.Contains(t, fake.Calls(), "fuelup default beta-5")
}

// TestSwitchFailureIsReported ensures a failing fuelup surfaces its stderr.
func TestSwitchFailureIsReported(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)

	err := m.Switch(context.Background(), testutils.BrokenToolchainPrefix+"-nightly")
	require.Error(t, err)
	require.Contains(t, err.Error(), "exit status 1")
	require.Contains(t, err.Error(), "is not installed")
	require.Empty(t, fake.ActiveToolchain())
}

// TestForcVersionTrimmed checks the reported version has surrounding whitespace removed.
func TestForcVersionTrimmed(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)

	require.NoError(t, m.Switch(context.Background(), "testnet"))
	version, err := m.ForcVersion(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, testutils.ExpectedVersion("testnet"), version)
}

// TestForcVersionHonoursProjectOverride checks the version query runs inside the given directory.
func TestForcVersionHonoursProjectOverride(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)

	dir := t.TempDir()
	override := "[toolchain]\nchannel = \"mainnet\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.ToolchainOverrideFileName), []byte(override), 0644))

	version, err := m.ForcVersion(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, testutils.ExpectedVersion("mainnet"), version)
}

// TestBuildSuccessWritesArtifacts runs a successful build and checks the artifact layout.
func TestBuildSuccessWritesArtifacts(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)
	p := stageProject(t, "contract;")

	out, err := m.Build(context.Background(), p.Dir)
	require.NoError(t, err)
	require.True(t, out.Success())
	require.Contains(t, string(out.Stdout), "Finished")

	bin, err := os.ReadFile(p.ArtifactPath(model.BytecodeArtifact))
	require.NoError(t, err)
	require.Equal(t, []byte(testutils.FakeBytecode), bin)
	require.FileExists(t, p.ArtifactPath(model.AbiArtifact))
	require.FileExists(t, p.ArtifactPath(model.StorageSlotsArtifact))
}

// TestBuildFailureIsNotAnError ensures a compile failure is reported through the exit code.
func TestBuildFailureIsNotAnError(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)
	p := stageProject(t, "contract;\n"+testutils.CompileErrorMarker)

	out, err := m.Build(context.Background(), p.Dir)
	require.NoError(t, err)
	require.False(t, out.Success())
	require.Equal(t, 1, out.ExitCode)
	require.Contains(t, string(out.Stderr), model.MainFileMarker)
}

// TestBuildMissingExecutable ensures a command that cannot start is an error.
func TestBuildMissingExecutable(t *testing.T) {
	m := toolchain.NewManager(testutils.Logger(t), filepath.Join(t.TempDir(), "no-forc"), "fuelup")
	p := stageProject(t, "contract;")

	_, err := m.Build(context.Background(), p.Dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forc build")
}

// TestBuildInterruptedByContext ensures a hung build returns once the context expires.
func TestBuildInterruptedByContext(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	m := toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup)
	p := stageProject(t, testutils.HangMarker)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var err error
	testutils.RequireReturnsWithin(t, 5*time.Second, "interrupted build", func() {
		_, err = m.Build(ctx, p.Dir)
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestLookPath checks both executables are resolved.
func TestLookPath(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	require.NoError(t, toolchain.NewManager(testutils.Logger(t), fake.Forc, fake.Fuelup).LookPath())

	missing := filepath.Join(t.TempDir(), "fuelup")
	err := toolchain.NewManager(testutils.Logger(t), fake.Forc, missing).LookPath()
	require.Error(t, err)
	require.Contains(t, err.Error(), "fuelup not found")
}
