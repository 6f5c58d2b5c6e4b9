package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thep2p/swaypad-compiler/internal/model"
	"github.com/thep2p/swaypad-compiler/internal/testutils"
)

// runApp runs the CLI against a fake toolchain and returns its standard output.
func runApp(t *testing.T, fake *testutils.FakeToolchain, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "swaypad.toml")
	cfg := "ForcBin = \"" + fake.Forc + "\"\nFuelupBin = \"" + fake.Fuelup + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)

	base := []string{"swaypad", "--config", cfgPath, "--projects-dir", testutils.NewTempDir(t).Path(), "--log-level", "debug"}
	err := app.RunContext(context.Background(), append(base, args...))
	return out.String(), err
}

func TestCompileCommandPrintsArtifacts(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)
	contractPath := filepath.Join(t.TempDir(), "main.sw")
	require.NoError(t, os.WriteFile(contractPath, []byte("contract;\n"), 0644))

	out, err := runApp(t, fake, "", "compile", "--file", contractPath, "--toolchain", "beta-5")
	require.NoError(t, err)

	var resp model.CompileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Empty(t, resp.Error)
	require.Equal(t, "0102abff10", resp.Bytecode)
	require.Equal(t, testutils.ExpectedVersion("beta-5"), resp.ForcVersion)
	require.Contains(t, out, "\n  \"abi\": ")
}

func TestCompileCommandReadsStdin(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)

	out, err := runApp(t, fake, testutils.CompileErrorMarker, "compile", "--file", "-")
	require.NoError(t, err, "compile errors are reported in the output")

	var resp model.CompileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, strings.HasPrefix(resp.Error, "main.sw:3:5"))
	require.Empty(t, resp.Abi)
}

func TestCompileCommandEmptyContract(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)

	out, err := runApp(t, fake, "", "compile", "--file", "-")
	require.NoError(t, err)
	require.JSONEq(t, `{"abi":"","bytecode":"","storage_slots":"","forc_version":"","error":"No contract."}`, out)
}

func TestCompileCommandInfrastructureError(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)

	out, err := runApp(t, fake, testutils.MissingAbiMarker, "compile", "--file", "-")
	require.Error(t, err)
	require.Empty(t, out)
}

func TestCompileCommandMissingFile(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)

	_, err := runApp(t, fake, "", "compile", "--file", filepath.Join(t.TempDir(), "absent.sw"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read contract")
}

func TestToolchainAndVersionCommands(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)

	out, err := runApp(t, fake, "", "toolchain", "beta-4")
	require.NoError(t, err)
	require.Equal(t, "default toolchain set to beta-4\n", out)
	require.Equal(t, "beta-4", fake.ActiveToolchain())

	out, err = runApp(t, fake, "", "version")
	require.NoError(t, err)
	require.Equal(t, testutils.ExpectedVersion("beta-4")+"\n", out)

	_, err = runApp(t, fake, "", "toolchain")
	require.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	fake := testutils.NewFakeToolchain(t)

	_, err := runApp(t, fake, "", "--log-level", "loud", "version")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse log level")
}
