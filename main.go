package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/thep2p/swaypad-compiler/internal/compilation"
	"github.com/thep2p/swaypad-compiler/internal/config"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	projectsDirFlag = &cli.StringFlag{
		Name:  "projects-dir",
		Usage: "Root directory for staged projects",
	}
	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Toolchain selection mode (global or project)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level (trace, debug, info, warn, error)",
		Value: "info",
	}
	toolchainFlag = &cli.StringFlag{
		Name:  "toolchain",
		Usage: "fuelup toolchain to use, the configured default when empty",
	}
	fileFlag = &cli.StringFlag{
		Name:     "file",
		Usage:    "Sway contract to compile, - reads standard input",
		Required: true,
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Maximum duration of a single forc build (0 disables)",
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "swaypad",
		Usage: "compile Sway contracts in throwaway forc projects",
		Flags: []cli.Flag{configFlag, projectsDirFlag, modeFlag, logLevelFlag},
		Commands: []*cli.Command{
			{
				Name:   "compile",
				Usage:  "Compile a contract and print the result as JSON",
				Flags:  []cli.Flag{fileFlag, toolchainFlag, timeoutFlag},
				Action: compileAction,
			},
			{
				Name:   "version",
				Usage:  "Print the forc version of a toolchain",
				Flags:  []cli.Flag{toolchainFlag},
				Action: versionAction,
			},
			{
				Name:      "toolchain",
				Usage:     "Make a toolchain the host-wide default",
				ArgsUsage: "<name>",
				Action:    toolchainAction,
			},
		},
	}
}

func compileAction(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}

	contract, err := readContract(c.String(fileFlag.Name), c.App.Reader)
	if err != nil {
		return err
	}

	resp, err := svc.BuildAndDestroyProject(c.Context, string(contract), c.String(toolchainFlag.Name))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func versionAction(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}
	version, err := svc.ForcVersion(c.Context, c.String(toolchainFlag.Name))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, version)
	return err
}

func toolchainAction(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("toolchain name required")
	}
	svc, err := newService(c)
	if err != nil {
		return err
	}
	if err := svc.SwitchToolchain(c.Context, name); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "default toolchain set to %s\n", name)
	return err
}

// newService builds the compilation service from defaults, the optional
// configuration file and the command line, in increasing precedence.
func newService(c *cli.Context) (*compilation.Service, error) {
	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if c.IsSet(projectsDirFlag.Name) {
		cfg.ProjectsDir = c.String(projectsDirFlag.Name)
	}
	if c.IsSet(modeFlag.Name) {
		cfg.ToolchainMode = c.String(modeFlag.Name)
	}
	if c.IsSet(timeoutFlag.Name) {
		cfg.BuildTimeout = config.Duration(c.Duration(timeoutFlag.Name))
	}

	logger, err := newLogger(c.String(logLevelFlag.Name), c.App.ErrWriter)
	if err != nil {
		return nil, err
	}
	return compilation.NewService(logger, cfg)
}

func newLogger(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger(), nil
}

func readContract(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read contract from stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract: %w", err)
	}
	return b, nil
}
