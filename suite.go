package conform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zenc-lang/zc-conform/logging"
	"github.com/zenc-lang/zc-conform/metrics"
	"github.com/zenc-lang/zc-conform/reporting"
	"github.com/zenc-lang/zc-conform/runner"
	"github.com/zenc-lang/zc-conform/types"
)

// SuiteRunner runs every discovered test against one backend.
type SuiteRunner interface {
	RunSuite(ctx context.Context, backend string) (*types.SuiteSummary, error)
}

var _ SuiteRunner = (*Harness)(nil)

// Harness runs suites with a located compiler driver.
type Harness struct {
	cfg      *Config
	compiler string
	executor runner.TestExecutor
	out      io.Writer
	log      log.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewHarness locates the compiler driver and prepares a harness writing its console
// output to out. A missing driver is reported as *runner.CompilerNotFoundError.
func NewHarness(cfg *Config, out io.Writer) (*Harness, error) {
	if cfg == nil {
		return nil, NewRuntimeError(errors.New("config is required"))
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.New()
	}

	compiler, err := locateCompiler(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Using compiler driver", "path", compiler)

	executor, err := runner.NewTestExecutor(runner.ExecutorConfig{
		Compiler: compiler,
		Timeout:  cfg.Timeout,
		Log:      logger,
	})
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create test executor: %w", err))
	}

	return &Harness{
		cfg:      cfg,
		compiler: compiler,
		executor: executor,
		out:      out,
		log:      logger,
		tracer:   otel.Tracer("suite runner"),
		now:      time.Now,
	}, nil
}

func locateCompiler(cfg *Config) (string, error) {
	if cfg.Compiler != "" {
		return runner.ResolveCompiler(cfg.Compiler)
	}
	return runner.FindCompiler(cfg.SearchDirs, runner.CompilerBinaryName(runtime.GOOS))
}

// Compiler returns the absolute path of the driver in use.
func (h *Harness) Compiler() string {
	return h.compiler
}

// RunSuite discovers the tests, runs them on the scheduler, reports each outcome in
// submission order and writes the run log. Test failures are reported through the
// summary; the error is reserved for harness failures.
func (h *Harness) RunSuite(ctx context.Context, backend string) (*types.SuiteSummary, error) {
	ctx, span := h.tracer.Start(ctx, fmt.Sprintf("suite %s", backend))
	defer span.End()

	runID := uuid.New().String()
	logger := h.log.New("backend", backend, "run_id", runID)
	span.SetAttributes(attribute.String("backend", backend), attribute.String("run_id", runID))

	startedAt := h.now()
	summary := &types.SuiteSummary{Backend: backend, RunID: runID, StartedAt: startedAt}
	reporter := reporting.NewReporter(h.out, h.cfg.Color, logger)

	cases, err := runner.DiscoverTests(h.cfg.TestDir, runner.TestFileExt)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		span.SetStatus(codes.Error, "discovery failed")
		metrics.RecordErrorDetails("discovery", err)
		return nil, NewRuntimeError(err)
	}
	if len(cases) == 0 {
		logger.Info("No tests found", "dir", h.cfg.TestDir)
		reporter.NoTests(h.cfg.TestDir)
		return summary, nil
	}

	logger.Info("Running suite", "tests", len(cases), "jobs", h.cfg.Jobs, "timeout", h.cfg.Timeout)
	entries := []string{reporter.Header(backend, startedAt)}

	scheduler := runner.NewScheduler(h.executor, h.cfg.Jobs, logger)
	batch := scheduler.Submit(ctx, cases, types.RunConfig{
		Backend:   backend,
		Jobs:      scheduler.Workers(),
		TestDir:   h.cfg.TestDir,
		ExtraArgs: h.cfg.ExtraArgs,
	})
	entries = append(entries, reporter.Consume(recordingStream{OutcomeStream: batch, backend: backend}, summary)...)
	batch.Wait()
	summary.Duration = h.now().Sub(startedAt)

	entries = append(entries, reporter.Summary(summary))

	path, err := logging.WriteRunLog(h.cfg.TestDir, backend, startedAt, entries)
	if err != nil {
		span.SetStatus(codes.Error, "log write failed")
		metrics.RecordErrorDetails("run_log", err)
		return summary, NewRuntimeError(err)
	}
	summary.LogPath = path
	reporter.LogSaved(path)

	metrics.RecordSuite(backend, runID, summary.Status(), summary.Passed, summary.Failed, summary.Duration)
	if summary.Failed > 0 {
		span.SetStatus(codes.Error, "tests failed")
	}
	logger.Info("Suite finished", "passed", summary.Passed, "failed", summary.Failed,
		"duration", summary.Duration, "log", path)

	if err := ctx.Err(); err != nil {
		return summary, NewRuntimeError(fmt.Errorf("suite interrupted: %w", err))
	}
	return summary, nil
}

// recordingStream counts every outcome as the reporter consumes it.
type recordingStream struct {
	reporting.OutcomeStream
	backend string
}

func (s recordingStream) Await(i int) types.TestOutcome {
	outcome := s.OutcomeStream.Await(i)
	metrics.RecordOutcome(s.backend, outcome)
	return outcome
}

// RunOnce runs a single suite for cfg.Backend and converts its result into an error
// understood by ExitCode.
func RunOnce(ctx context.Context, cfg *Config, out io.Writer) error {
	harness, err := NewHarness(cfg, out)
	if err != nil {
		return err
	}

	summary, err := harness.RunSuite(ctx, cfg.Backend)
	if metricsErr := writeMetrics(cfg); metricsErr != nil && err == nil {
		err = metricsErr
	}
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewTestFailureError(fmt.Sprintf("%d of %d tests failed", summary.Failed, summary.Total()))
	}
	return nil
}

func writeMetrics(cfg *Config) error {
	if cfg.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		return NewRuntimeError(err)
	}
	return nil
}
