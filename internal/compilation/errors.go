package compilation

import (
	"errors"
	"fmt"
)

// Error kinds. Every ApiError matches exactly one of them with errors.Is.
var (
	// ErrFilesystem reports a failure to create, write or remove a staged project.
	ErrFilesystem = errors.New("filesystem error")
	// ErrToolchain reports a toolchain command that could not be run or did not finish.
	ErrToolchain = errors.New("toolchain error")
	// ErrMissingArtifact reports a successful build that did not produce its ABI.
	ErrMissingArtifact = errors.New("missing build artifact")
	// ErrUndecodableDiagnostics reports compiler diagnostics that are not valid UTF-8 text.
	ErrUndecodableDiagnostics = errors.New("undecodable diagnostic output")
)

// ErrBuildTimeout is wrapped by the toolchain error of a build that exceeded the configured timeout.
var ErrBuildTimeout = errors.New("build timed out")

// ApiError is an infrastructure failure of a compile call. A contract that does
// not compile is not an ApiError; it is reported through CompileResponse.Error.
type ApiError struct {
	// Kind is one of the error kinds above.
	Kind error
	// Op names the step that failed, e.g. "remove project".
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ApiError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func filesystemError(op string, err error) error {
	return &ApiError{Kind: ErrFilesystem, Op: op, Err: err}
}

func toolchainError(op string, err error) error {
	return &ApiError{Kind: ErrToolchain, Op: op, Err: err}
}
