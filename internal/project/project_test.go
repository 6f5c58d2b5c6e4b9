package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thep2p/swaypad-compiler/internal/model"
	"github.com/thep2p/swaypad-compiler/internal/project"
	"github.com/thep2p/swaypad-compiler/internal/testutils"
)

// TestCreateLaysOutSkeleton verifies the directory tree and manifest of a new project.
func TestCreateLaysOutSkeleton(t *testing.T) {
	root := testutils.NewTempDir(t).Path()
	stager := project.NewStager(testutils.Logger(t), root)

	p, err := stager.Create()
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, filepath.Join(root, p.ID), p.Dir)

	info, err := os.Stat(filepath.Join(p.Dir, model.SourceDir))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	manifest, err := os.ReadFile(filepath.Join(p.Dir, model.ManifestFileName))
	require.NoError(t, err)
	require.Contains(t, string(manifest), `name = "swaypad"`)
	require.Contains(t, string(manifest), `entry = "main.sw"`)
	require.Contains(t, string(manifest), "[dependencies]")
}

// TestCreateUniqueIDs ensures two projects never share a directory.
func TestCreateUniqueIDs(t *testing.T) {
	stager := project.NewStager(testutils.Logger(t), testutils.NewTempDir(t).Path())

	p1, err := stager.Create()
	require.NoError(t, err)
	p2, err := stager.Create()
	require.NoError(t, err)

	require.NotEqual(t, p1.ID, p2.ID)
	require.NotEqual(t, p1.Dir, p2.Dir)
}

// TestCreateFailsWhenRootIsAFile ensures filesystem failures are returned, not swallowed.
func TestCreateFailsWhenRootIsAFile(t *testing.T) {
	root := filepath.Join(testutils.NewTempDir(t).Path(), "not-a-dir")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	_, err := project.NewStager(testutils.Logger(t), root).Create()
	require.Error(t, err)
	require.Contains(t, err.Error(), "create project directory")
}

// TestWriteMainFileVerbatim checks the source bytes are stored unchanged.
func TestWriteMainFileVerbatim(t *testing.T) {
	stager := project.NewStager(testutils.Logger(t), testutils.NewTempDir(t).Path())
	p, err := stager.Create()
	require.NoError(t, err)

	src := []byte("contract;\n\nabi Counter {\n    fn count() -> u64;\n}\n")
	require.NoError(t, stager.WriteMainFile(p, src))

	got, err := os.ReadFile(p.MainFile())
	require.NoError(t, err)
	require.Equal(t, src, got)
}

// TestWriteToolchainOverride checks the fuel-toolchain.toml pins the requested channel.
func TestWriteToolchainOverride(t *testing.T) {
	stager := project.NewStager(testutils.Logger(t), testutils.NewTempDir(t).Path())
	p, err := stager.Create()
	require.NoError(t, err)

	require.NoError(t, stager.WriteToolchainOverride(p, "beta-5"))

	got, err := os.ReadFile(filepath.Join(p.Dir, model.ToolchainOverrideFileName))
	require.NoError(t, err)
	require.Equal(t, "[toolchain]\nchannel = \"beta-5\"\n", string(got))
}

// TestRemoveDeletesTree verifies the whole project subtree is gone after Remove.
func TestRemoveDeletesTree(t *testing.T) {
	stager := project.NewStager(testutils.Logger(t), testutils.NewTempDir(t).Path())
	p, err := stager.Create()
	require.NoError(t, err)
	require.NoError(t, stager.WriteMainFile(p, []byte("contract;")))
	require.NoError(t, os.MkdirAll(filepath.Dir(p.ArtifactPath(model.AbiArtifact)), 0755))

	require.NoError(t, stager.Remove(p))

	_, err = os.Stat(p.Dir)
	require.True(t, os.IsNotExist(err), "project directory should be removed")
}

// TestArtifactPath pins the forc output layout.
func TestArtifactPath(t *testing.T) {
	p := project.Project{ID: "abc", Dir: filepath.Join("projects", "abc")}
	require.Equal(t, filepath.Join("projects", "abc", "out", "debug", "swaypad.bin"), p.ArtifactPath(model.BytecodeArtifact))
	require.Equal(t, filepath.Join("projects", "abc", "src", "main.sw"), p.MainFile())
}
