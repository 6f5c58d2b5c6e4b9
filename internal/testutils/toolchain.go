package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Markers understood by the fake forc build. A contract containing one of them
// makes the fake compiler behave accordingly.
const (
	// CompileErrorMarker makes the build fail with a diagnostic that points at the main file.
	CompileErrorMarker = "FAKE_COMPILE_ERROR"
	// NoMarkerErrorMarker makes the build fail with a diagnostic that never mentions the main
	// file but names the project directory.
	NoMarkerErrorMarker = "FAKE_GENERIC_ERROR"
	// BinaryStderrMarker makes the build fail with stderr that is not valid UTF-8.
	BinaryStderrMarker = "FAKE_BINARY_STDERR"
	// MissingAbiMarker makes the build succeed without writing the ABI artifact.
	MissingAbiMarker = "FAKE_MISSING_ABI"
	// AbiOnlyMarker makes the build succeed writing only the ABI artifact.
	AbiOnlyMarker = "FAKE_ABI_ONLY"
	// SlowBuildMarker makes the build sleep before succeeding.
	SlowBuildMarker = "FAKE_SLOW_BUILD"
	// HangMarker makes the build sleep far longer than any test timeout.
	HangMarker = "FAKE_HANG"
)

const (
	// FakeForcVersion is the version line printed by the fake forc, before the toolchain suffix.
	FakeForcVersion = "forc 0.66.7"
	// FakeBytecode is the bytecode the fake forc writes on success.
	FakeBytecode = "\x01\x02\xab\xff\x10"
	// FakeStorageSlots is the storage-slot layout the fake forc writes on success.
	FakeStorageSlots = `[{"key":"0000000000000000000000000000000000000000000000000000000000000000","value":"0000000000000000000000000000000000000000000000000000000000000001"}]`
	// BrokenToolchainPrefix makes the fake fuelup fail to switch to any toolchain starting with it.
	BrokenToolchainPrefix = "broken"
)

// fuelupScript implements `fuelup default <name>` by recording name in a state file.
const fuelupScript = `#!/bin/sh
echo "fuelup $*" >> '%[2]s'
if [ "$1" != "default" ]; then
  echo "error: unknown command $1" >&2
  exit 2
fi
case "$2" in
  %[3]s*)
    echo "error: toolchain '$2' is not installed" >&2
    exit 1
    ;;
esac
printf '%%s' "$2" > '%[1]s'
echo "default toolchain set to '$2'"
`

// forcScript implements `forc --version` and `forc build --path <dir>`.
// The active toolchain is read from the project's fuel-toolchain.toml when
// present, otherwise from the state file written by the fake fuelup.
const forcScript = `#!/bin/sh
echo "forc $*" >> '%[2]s'
toolchain=$(cat '%[1]s' 2>/dev/null)
if [ -z "$toolchain" ]; then toolchain=latest; fi
if [ -f fuel-toolchain.toml ]; then
  toolchain=$(sed -n 's/^channel = "\(.*\)"$/\1/p' fuel-toolchain.toml)
fi

case "$1" in
  --version)
    echo "   %[3]s ($toolchain)   "
    exit 0
    ;;
  build)
    ;;
  *)
    echo "error: unknown command $1" >&2
    exit 2
    ;;
esac

dir="$3"
if [ -f "$dir/fuel-toolchain.toml" ]; then
  toolchain=$(sed -n 's/^channel = "\(.*\)"$/\1/p' "$dir/fuel-toolchain.toml")
fi
src="$dir/src/main.sw"
abs=$(cd "$dir" && pwd)/src/main.sw
out="$dir/out/debug"

if grep -q %[4]s "$src"; then
  printf '  Compiling library std (%%s)\n' "$toolchain" >&2
  printf '\033[31merror\033[0m: Could not find symbol "bad" in this scope.\n' >&2
  printf '  --> %%s:3:5\n  |\n\033[1m3 |     bad\033[0m\n  |\n____\n\n  Aborting due to 1 error.\n' "$abs" >&2
  exit 1
fi
if grep -q %[5]s "$src"; then
  printf '\n  Compiling contract swaypad (%%s)\n  error: failed to parse manifest at %%s/Forc.toml\n\n' "$(cd "$dir" && pwd)" "$dir" >&2
  exit 1
fi
if grep -q %[6]s "$src"; then
  printf '\377\376garbage\n' >&2
  exit 1
fi
if grep -q %[8]s "$src"; then
  exec sleep 30
fi

echo "build-start" >> '%[2]s'
if grep -q %[7]s "$src"; then
  sleep 0.2
fi
mkdir -p "$out"
if ! grep -q %[9]s "$src"; then
  printf '{"programType":"contract","specVersion":"1","toolchain":"%%s","functions":[]}\n' "$toolchain" > "$out/swaypad-abi.json"
fi
if ! grep -q %[10]s "$src"; then
  printf '\001\002\253\377\020' > "$out/swaypad.bin"
  printf '%%s\n' '%[11]s' > "$out/swaypad-storage_slots.json"
fi
echo "build-end" >> '%[2]s'
printf '  Finished debug in 0.42s\n'
`

// FakeToolchain is a pair of shell scripts standing in for fuelup and forc.
type FakeToolchain struct {
	t      *testing.T
	dir    string
	state  string
	calls  string
	Forc   string
	Fuelup string
}

// NewFakeToolchain writes executable fake fuelup and forc scripts into a fresh
// temporary directory. The scripts require /bin/sh.
func NewFakeToolchain(t *testing.T) *FakeToolchain {
	t.Helper()
	dir := t.TempDir()
	f := &FakeToolchain{
		t:      t,
		dir:    dir,
		state:  filepath.Join(dir, "active-toolchain"),
		calls:  filepath.Join(dir, "calls.log"),
		Forc:   filepath.Join(dir, "forc"),
		Fuelup: filepath.Join(dir, "fuelup"),
	}

	fuelup := fmt.Sprintf(fuelupScript, f.state, f.calls, BrokenToolchainPrefix)
	forc := fmt.Sprintf(forcScript,
		f.state,
		f.calls,
		FakeForcVersion,
		CompileErrorMarker,
		NoMarkerErrorMarker,
		BinaryStderrMarker,
		SlowBuildMarker,
		HangMarker,
		MissingAbiMarker,
		AbiOnlyMarker,
		FakeStorageSlots,
	)
	require.NoError(t, os.WriteFile(f.Fuelup, []byte(fuelup), 0755))
	require.NoError(t, os.WriteFile(f.Forc, []byte(forc), 0755))
	return f
}

// ActiveToolchain returns the toolchain last selected through the fake fuelup,
// or an empty string if none was selected.
func (f *FakeToolchain) ActiveToolchain() string {
	f.t.Helper()
	b, err := os.ReadFile(f.state)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(f.t, err)
	return string(b)
}

// Calls returns every recorded invocation line and build event, in order.
func (f *FakeToolchain) Calls() []string {
	f.t.Helper()
	b, err := os.ReadFile(f.calls)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(f.t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

// ExpectedVersion returns the trimmed version the fake forc reports for toolchain.
func ExpectedVersion(toolchain string) string {
	return fmt.Sprintf("%s (%s)", FakeForcVersion, toolchain)
}
