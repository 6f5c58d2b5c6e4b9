// Package compilation compiles Sway contracts by staging a throwaway forc
// project, building it with the requested toolchain and collecting either the
// build artifacts or the compiler diagnostics. The staged project is always
// removed before a call returns.
package compilation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/docker/go-units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/thep2p/swaypad-compiler/internal/config"
	"github.com/thep2p/swaypad-compiler/internal/model"
	"github.com/thep2p/swaypad-compiler/internal/project"
	"github.com/thep2p/swaypad-compiler/internal/toolchain"
	"golang.org/x/sync/singleflight"
)

// Stager creates, populates and removes staged projects.
type Stager interface {
	Create() (project.Project, error)
	WriteMainFile(p project.Project, content []byte) error
	WriteToolchainOverride(p project.Project, toolchain string) error
	Remove(p project.Project) error
}

// Toolchain selects toolchains and runs forc.
type Toolchain interface {
	Switch(ctx context.Context, name string) error
	ForcVersion(ctx context.Context, dir string) (string, error)
	Build(ctx context.Context, projectDir string) (toolchain.ProcessOutput, error)
}

// Option customizes a Service before use.
type Option func(*Service)

// WithStager replaces the default on-disk stager.
func WithStager(s Stager) Option {
	return func(svc *Service) {
		svc.stager = s
	}
}

// WithToolchain replaces the default fuelup/forc toolchain.
func WithToolchain(t Toolchain) Option {
	return func(svc *Service) {
		svc.tools = t
	}
}

// WithRegisterer registers the service metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(svc *Service) {
		svc.metrics = NewMetrics(reg)
	}
}

var toolchainPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// Service compiles contracts. It is safe for concurrent use.
type Service struct {
	logger      zerolog.Logger
	cfg         config.Config
	maxContract int64

	stager   Stager
	tools    Toolchain
	lock     *toolchain.Lock
	metrics  *Metrics
	validate *validator.Validate
	inflight singleflight.Group
}

// NewService validates cfg and returns a Service using it.
//
// In the global toolchain mode every compile call holds a process and file
// wide lock from the toolchain switch until its artifacts are read, so calls
// are serialized. In the project mode the toolchain is pinned per project and
// calls run concurrently.
func NewService(logger zerolog.Logger, cfg config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxContract, err := cfg.MaxContractBytes()
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.RegisterValidation("toolchain", func(fl validator.FieldLevel) bool {
		return toolchainPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register toolchain validation: %w", err)
	}

	s := &Service{
		logger:      logger.With().Str("component", "compilation-service").Logger(),
		cfg:         cfg,
		maxContract: maxContract,
		stager:      project.NewStager(logger, cfg.ProjectsDir),
		tools:       toolchain.NewManager(logger, cfg.ForcBin, cfg.FuelupBin),
		metrics:     NewMetrics(nil),
		validate:    validate,
	}
	if cfg.ToolchainMode == config.ToolchainModeGlobal {
		s.lock = toolchain.NewLock(cfg.LockFile(), cfg.LockRetryDelay.Std())
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info().
		Str("projects_dir", cfg.ProjectsDir).
		Str("toolchain_mode", cfg.ToolchainMode).
		Str("default_toolchain", cfg.DefaultToolchain).
		Dur("build_timeout", cfg.BuildTimeout.Std()).
		Str("max_contract_size", units.BytesSize(float64(maxContract))).
		Msg("compilation service configured")

	return s, nil
}

// BuildAndDestroyProject compiles contract with the named toolchain (the
// configured default when empty) in a freshly staged project and removes the
// project afterwards.
//
// A contract that fails to compile yields a response with Error set and a nil
// error. Infrastructure failures yield an *ApiError. An empty contract yields
// a response carrying model.NoContractError without touching the filesystem.
// Concurrent calls for the same toolchain and contract share one build. A caller
// whose ctx ends stops waiting for it without cancelling it for the others.
func (s *Service) BuildAndDestroyProject(ctx context.Context, contract, name string) (*model.CompileResponse, error) {
	start := time.Now()

	if contract == "" {
		s.metrics.observe(OutcomeEmpty, start)
		return model.NewErrorResponse(model.NoContractError, ""), nil
	}
	if size := int64(len(contract)); size > s.maxContract {
		s.metrics.observe(OutcomeRejected, start)
		return model.NewErrorResponse(fmt.Sprintf("contract exceeds maximum size of %s",
			units.BytesSize(float64(s.maxContract))), ""), nil
	}
	if name == "" {
		name = s.cfg.DefaultToolchain
	}
	req := model.CompileRequest{Contract: contract, Toolchain: name}
	if err := s.validate.Struct(req); err != nil {
		s.metrics.observe(OutcomeRejected, start)
		return model.NewErrorResponse(fmt.Sprintf("invalid toolchain %q", name), ""), nil
	}

	// The shared build outlives any single caller; BuildTimeout bounds it.
	key := crypto.Keccak256Hash([]byte(req.Toolchain), []byte{0}, []byte(req.Contract)).Hex()
	results := s.inflight.DoChan(key, func() (interface{}, error) {
		return s.compile(context.WithoutCancel(ctx), req)
	})

	var res singleflight.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		s.metrics.observe(OutcomeInfraError, start)
		s.logger.Warn().Err(ctx.Err()).Str("toolchain", name).Msg("caller left before the build finished")
		return nil, toolchainError("await build", ctx.Err())
	}
	if res.Err != nil {
		s.metrics.observe(OutcomeInfraError, start)
		s.logger.Error().Err(res.Err).Str("toolchain", name).Msg("compile failed")
		return nil, res.Err
	}

	resp := *res.Val.(*model.CompileResponse)
	if resp.Failed() {
		s.metrics.observe(OutcomeCompileError, start)
	} else {
		s.metrics.observe(OutcomeSuccess, start)
	}
	s.logger.Info().
		Str("toolchain", name).
		Str("forc_version", resp.ForcVersion).
		Bool("compiled", !resp.Failed()).
		Bool("shared", res.Shared).
		Dur("duration", time.Since(start)).
		Msg("compile finished")

	return &resp, nil
}

// ForcVersion reports the forc version of the named toolchain, switching the
// host-wide default first when name is non-empty.
func (s *Service) ForcVersion(ctx context.Context, name string) (string, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if name != "" {
		if err := s.tools.Switch(ctx, name); err != nil {
			return "", toolchainError("switch toolchain", err)
		}
	}
	version, err := s.tools.ForcVersion(ctx, "")
	if err != nil {
		return "", toolchainError("check forc version", err)
	}
	return version, nil
}

// SwitchToolchain makes name the host-wide default toolchain.
func (s *Service) SwitchToolchain(ctx context.Context, name string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.tools.Switch(ctx, name); err != nil {
		return toolchainError("switch toolchain", err)
	}
	return nil
}

// acquire takes the toolchain lock in the global mode. On success the returned
// release function is never nil, even when no lock is taken.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}

	waitStart := time.Now()
	unlock, err := s.lock.Acquire(ctx)
	s.metrics.observeLockWait(waitStart)
	if err != nil {
		return nil, toolchainError("acquire toolchain lock", err)
	}
	return func() {
		if err := unlock(); err != nil {
			s.logger.Error().Err(err).Msg("failed to release toolchain lock")
		}
	}, nil
}

// compile runs select toolchain -> stage -> build -> assemble -> tear down.
// Once a project was created it is removed on every path; a removal failure
// replaces any response and is joined to any error already being returned.
func (s *Service) compile(ctx context.Context, req model.CompileRequest) (resp *model.CompileResponse, err error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var forcVersion string
	if s.lock != nil {
		if err := s.tools.Switch(ctx, req.Toolchain); err != nil {
			return nil, toolchainError("switch toolchain", err)
		}
		if forcVersion, err = s.tools.ForcVersion(ctx, ""); err != nil {
			return nil, toolchainError("check forc version", err)
		}
	}

	p, err := s.stager.Create()
	if err != nil {
		return nil, filesystemError("create project", err)
	}
	logger := s.logger.With().Str("project", p.ID).Logger()
	defer func() {
		if rerr := s.stager.Remove(p); rerr != nil {
			logger.Error().Err(rerr).Msg("failed to remove project")
			resp = nil
			err = errors.Join(err, filesystemError("remove project", rerr))
		}
	}()

	if s.lock == nil {
		if err := s.stager.WriteToolchainOverride(p, req.Toolchain); err != nil {
			return nil, filesystemError("write toolchain override", err)
		}
		if forcVersion, err = s.tools.ForcVersion(ctx, p.Dir); err != nil {
			return nil, toolchainError("check forc version", err)
		}
	}

	if err := s.stager.WriteMainFile(p, []byte(req.Contract)); err != nil {
		return nil, filesystemError("write main file", err)
	}

	buildCtx := ctx
	if s.cfg.BuildTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, s.cfg.BuildTimeout.Std())
		defer cancel()
	}

	out, err := s.tools.Build(buildCtx, p.Dir)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrBuildTimeout, s.cfg.BuildTimeout, err)
		}
		return nil, toolchainError("build project", err)
	}
	logger.Debug().
		Int("exit_code", out.ExitCode).
		Dur("build_duration", out.Duration).
		Msg("project built")

	if !out.Success() {
		msg, err := ExtractDiagnostic(out.Stderr, out.ExitCode)
		if err != nil {
			return nil, err
		}
		return model.NewErrorResponse(ScrubProject(msg, p.Dir, p.ID), forcVersion), nil
	}
	return s.collectArtifacts(logger, p, forcVersion)
}

// collectArtifacts reads the build output of p. The ABI is required; a missing
// bytecode or storage-slot file degrades to empty content.
func (s *Service) collectArtifacts(logger zerolog.Logger, p project.Project, forcVersion string) (*model.CompileResponse, error) {
	abi, err := os.ReadFile(p.ArtifactPath(model.AbiArtifact))
	if err != nil {
		return nil, &ApiError{Kind: ErrMissingArtifact, Op: "read abi", Err: err}
	}
	bytecode := readOptional(logger, p.ArtifactPath(model.BytecodeArtifact))
	storageSlots := readOptional(logger, p.ArtifactPath(model.StorageSlotsArtifact))

	if !json.Valid(abi) {
		logger.Warn().Msg("abi artifact is not valid json")
	}
	if len(storageSlots) > 0 && !json.Valid(storageSlots) {
		logger.Warn().Msg("storage slots artifact is not valid json")
	}

	logger.Info().
		Str("bytecode_hash", crypto.Keccak256Hash(bytecode).Hex()).
		Str("bytecode_size", units.HumanSize(float64(len(bytecode)))).
		Msg("contract compiled")

	return &model.CompileResponse{
		Abi:          ScrubProject(CleanContent(string(abi), model.MainFileName), p.Dir, p.ID),
		Bytecode:     CleanContent(common.Bytes2Hex(bytecode), model.MainFileName),
		StorageSlots: ScrubProject(CleanContent(string(storageSlots), model.MainFileName), p.Dir, p.ID),
		ForcVersion:  forcVersion,
	}, nil
}

func readOptional(logger zerolog.Logger, path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("optional artifact unreadable, using empty content")
		return nil
	}
	return b
}
