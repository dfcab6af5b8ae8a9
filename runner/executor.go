package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zenc-lang/zc-conform/sandbox"
	"github.com/zenc-lang/zc-conform/types"
)

var _ TestExecutor = (*testExecutor)(nil)

// TestExecutor runs a single test case through the compiler driver.
// Execute never returns an error: every failure is reported through the outcome.
type TestExecutor interface {
	Execute(ctx context.Context, tc types.TestCase, cfg types.RunConfig) types.TestOutcome
}

// Sandboxer provides an isolated working directory for the duration of fn.
type Sandboxer interface {
	With(fn func(dir string) error) error
}

// CommandBuilder creates the command for one compiler invocation.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// ExecutorConfig holds configuration for creating a new TestExecutor
type ExecutorConfig struct {
	Compiler   string        // Absolute path to the compiler driver
	Timeout    time.Duration // Wall clock limit per test, DefaultTestTimeout when zero
	WaitDelay  time.Duration // Pipe drain limit after a kill, DefaultWaitDelay when zero
	Sandboxes  Sandboxer
	Log        log.Logger
	CmdBuilder CommandBuilder // Optional, exec.CommandContext when nil
}

// testExecutor implements TestExecutor
type testExecutor struct {
	compiler   string
	timeout    time.Duration
	waitDelay  time.Duration
	sandboxes  Sandboxer
	log        log.Logger
	cmdBuilder CommandBuilder
	tracer     trace.Tracer
}

// NewTestExecutor creates a new test executor
func NewTestExecutor(cfg ExecutorConfig) (TestExecutor, error) {
	if cfg.Compiler == "" {
		return nil, fmt.Errorf("compiler cannot be empty")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTestTimeout
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.Sandboxes == nil {
		cfg.Sandboxes = sandbox.NewProvisioner("", cfg.Log)
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}

	return &testExecutor{
		compiler:   cfg.Compiler,
		timeout:    cfg.Timeout,
		waitDelay:  cfg.WaitDelay,
		sandboxes:  cfg.Sandboxes,
		log:        cfg.Log.New("component", "executor"),
		cmdBuilder: cfg.CmdBuilder,
		tracer:     otel.Tracer("test executor"),
	}, nil
}

// Execute runs one test in a fresh sandbox
func (e *testExecutor) Execute(ctx context.Context, tc types.TestCase, cfg types.RunConfig) (outcome types.TestOutcome) {
	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("test %s", tc.Name),
		trace.WithAttributes(attribute.String("backend", cfg.Backend), attribute.String("path", tc.Path)))
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("Panic while executing test", "test", tc.Name, "error", rec)
			outcome = types.TestOutcome{
				Case:       tc,
				Success:    false,
				Diagnostic: fmt.Sprintf("Exception: runtime error: %v", rec),
			}
		}
		outcome.Duration = time.Since(start)
		if !outcome.Success {
			span.SetStatus(codes.Error, "test failed")
		}
	}()

	err := e.sandboxes.With(func(dir string) error {
		outcome = e.runInSandbox(ctx, dir, tc, cfg)
		return nil
	})
	if err != nil {
		e.log.Warn("Sandbox provisioning failed", "test", tc.Name, "err", err)
		return types.TestOutcome{
			Case:       tc,
			Success:    false,
			Diagnostic: fmt.Sprintf("Exception: %v", err),
		}
	}
	return outcome
}

func (e *testExecutor) runInSandbox(ctx context.Context, dir string, tc types.TestCase, cfg types.RunConfig) types.TestOutcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := e.buildTestArgs(tc, cfg)
	cmd := e.cmdBuilder(ctx, e.compiler, args...)
	cmd.Dir = dir
	cmd.Env = telemetry.InstrumentEnvironment(ctx, os.Environ())
	cmd.WaitDelay = e.waitDelay
	configureProcessGroup(cmd)

	output := newTailBuffer(defaultOutputTailBytes)
	cmd.Stdout = output
	cmd.Stderr = output

	e.log.Debug("Running test command",
		"test", tc.Name,
		"dir", dir,
		"command", cmd.String(),
		"timeout", e.timeout)

	runErr := cmd.Run()
	diagnostic := output.String()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.log.Warn("Test timed out", "test", tc.Name, "timeout", e.timeout)
		return types.TestOutcome{
			Case:       tc,
			Success:    false,
			Diagnostic: fmt.Sprintf("%s\nERROR: test timed out after %v", diagnostic, e.timeout),
			TimedOut:   true,
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return types.TestOutcome{
			Case:       tc,
			Success:    false,
			Diagnostic: fmt.Sprintf("%s\nERROR: test interrupted before completion", diagnostic),
		}
	}

	if runErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			e.log.Debug("Compiler exited with failure", "test", tc.Name, "exitCode", exitErr.ExitCode())
			return types.TestOutcome{Case: tc, Success: false, Diagnostic: diagnostic}
		}
		// The process never ran or could not be waited on
		return types.TestOutcome{
			Case:       tc,
			Success:    false,
			Diagnostic: fmt.Sprintf("Exception: %v", runErr),
		}
	}

	if _, err := os.Stat(filepath.Join(dir, ArtifactName)); err != nil {
		return types.TestOutcome{
			Case:       tc,
			Success:    false,
			Diagnostic: fmt.Sprintf("%s\nERROR: '%s' was not generated.", diagnostic, ArtifactName),
		}
	}

	return types.TestOutcome{Case: tc, Success: true, Diagnostic: diagnostic}
}

func (e *testExecutor) buildTestArgs(tc types.TestCase, cfg types.RunConfig) []string {
	path := tc.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	args := []string{RunCommand, path, EmitCFlag}

	if cfg.Backend != "" {
		args = append(args, BackendFlag, cfg.Backend)
	}

	return append(args, cfg.ExtraArgs...)
}
