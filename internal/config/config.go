// Package config holds the settings of the compilation service and loads them
// from an optional TOML file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/docker/go-units"
	"github.com/go-playground/validator/v10"
	"github.com/naoina/toml"
)

const (
	// ToolchainModeGlobal switches the host-wide fuelup default before each build.
	// Builds are serialized because the switch affects every concurrent caller.
	ToolchainModeGlobal = "global"
	// ToolchainModeProject pins the toolchain inside the staged project with a
	// fuel-toolchain.toml, leaving the host-wide default untouched.
	ToolchainModeProject = "project"
)

// Config defines the parameters of the compilation service.
type Config struct {
	// ProjectsDir is the root under which every staged project directory is created.
	ProjectsDir string `validate:"required"`

	// ForcBin is the name or path of the forc executable.
	ForcBin string `validate:"required"`

	// FuelupBin is the name or path of the fuelup executable.
	FuelupBin string `validate:"required"`

	// DefaultToolchain is used for requests that do not name a toolchain.
	DefaultToolchain string `validate:"required"`

	// ToolchainMode selects how a toolchain is made active for a build.
	ToolchainMode string `validate:"required,oneof=global project"`

	// BuildTimeout bounds a single forc build. Zero waits for the build indefinitely.
	BuildTimeout Duration `validate:"gte=0"`

	// LockRetryDelay is the polling interval while waiting on the cross-process build lock.
	LockRetryDelay Duration `validate:"gt=0"`

	// MaxContractSize is the largest accepted contract, as a human readable size (e.g. "1MiB").
	MaxContractSize string `validate:"required"`
}

// Default returns the configuration used when no file or flag overrides a value.
func Default() Config {
	return Config{
		ProjectsDir:      "projects",
		ForcBin:          "forc",
		FuelupBin:        "fuelup",
		DefaultToolchain: "latest",
		ToolchainMode:    ToolchainModeGlobal,
		BuildTimeout:     0,
		LockRetryDelay:   Duration(50 * time.Millisecond),
		MaxContractSize:  "1MiB",
	}
}

// Validate checks the struct tags and that MaxContractSize parses.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.MaxContractBytes(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// MaxContractBytes returns MaxContractSize in bytes.
func (c Config) MaxContractBytes() (int64, error) {
	size, err := units.RAMInBytes(c.MaxContractSize)
	if err != nil {
		return 0, fmt.Errorf("parse max contract size %q: %w", c.MaxContractSize, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("max contract size must be positive, got %q", c.MaxContractSize)
	}
	return size, nil
}

// LockFile is the path of the cross-process lock guarding global toolchain switches.
func (c Config) LockFile() string {
	return filepath.Join(c.ProjectsDir, ".toolchain.lock")
}

// tomlSettings rejects keys that do not map onto a Config field.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadFile decodes the TOML file at path on top of cfg. Fields absent from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}
