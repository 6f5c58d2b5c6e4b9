// Package project stages throwaway forc projects on disk. Each staged project
// lives in its own uniquely named directory under a shared root and is owned by
// exactly one compile call.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thep2p/swaypad-compiler/internal/model"
)

// manifest is the Forc.toml written into every staged project.
var manifest = fmt.Sprintf(`[project]
authors = ["%[1]s"]
entry = "%[2]s"
license = "Apache-2.0"
name = "%[1]s"

[dependencies]
`, model.ProjectName, model.MainFileName)

// Project is a staged project directory.
type Project struct {
	// ID is the unique name of the project directory.
	ID string
	// Dir is the path of the project directory.
	Dir string
}

// MainFile returns the path of the project's main source file.
func (p Project) MainFile() string {
	return filepath.Join(p.Dir, model.SourceDir, model.MainFileName)
}

// ArtifactPath returns the path forc writes the named build artifact to.
func (p Project) ArtifactPath(name string) string {
	return filepath.Join(p.Dir, filepath.FromSlash(model.ArtifactDir), name)
}

// Stager creates, populates and removes projects under a root directory.
type Stager struct {
	logger zerolog.Logger
	root   string
}

// NewStager returns a Stager rooted at root. The root itself is created lazily
// together with the first project.
func NewStager(logger zerolog.Logger, root string) *Stager {
	return &Stager{
		logger: logger.With().Str("component", "project-stager").Logger(),
		root:   root,
	}
}

// Root returns the directory that holds all staged projects.
func (s *Stager) Root() string {
	return s.root
}

// Create generates a fresh project ID and materializes the project skeleton:
// the source directory and the manifest.
func (s *Stager) Create() (Project, error) {
	id := uuid.New().String()
	p := Project{ID: id, Dir: filepath.Join(s.root, id)}

	if err := os.MkdirAll(filepath.Join(p.Dir, model.SourceDir), 0755); err != nil {
		return Project{}, fmt.Errorf("create project directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.Dir, model.ManifestFileName), []byte(manifest), 0644); err != nil {
		return Project{}, fmt.Errorf("write manifest: %w", err)
	}

	s.logger.Debug().Str("project", id).Msg("project created")
	return p, nil
}

// WriteMainFile writes content verbatim to the main source file of p.
func (s *Stager) WriteMainFile(p Project, content []byte) error {
	if err := os.WriteFile(p.MainFile(), content, 0644); err != nil {
		return fmt.Errorf("write main file: %w", err)
	}
	return nil
}

// WriteToolchainOverride pins toolchain for builds run inside p, so fuelup
// resolves forc without consulting the host-wide default.
func (s *Stager) WriteToolchainOverride(p Project, toolchain string) error {
	content := fmt.Sprintf("[toolchain]\nchannel = %q\n", toolchain)
	path := filepath.Join(p.Dir, model.ToolchainOverrideFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write toolchain override: %w", err)
	}
	return nil
}

// Remove recursively deletes the project directory.
func (s *Stager) Remove(p Project) error {
	if err := os.RemoveAll(p.Dir); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}
	s.logger.Debug().Str("project", p.ID).Msg("project removed")
	return nil
}
