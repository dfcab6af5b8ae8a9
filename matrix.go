package conform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"

	"github.com/zenc-lang/zc-conform/cleanup"
	"github.com/zenc-lang/zc-conform/metrics"
	"github.com/zenc-lang/zc-conform/reporting"
	"github.com/zenc-lang/zc-conform/runner"
	"github.com/zenc-lang/zc-conform/types"
)

// Matrix runs the suite once per available backend.
type Matrix struct {
	cfg     *Config
	suites  SuiteRunner
	prober  BackendProber
	cleaner *cleanup.Cleaner
	out     io.Writer
	log     log.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewMatrix creates a driver for cfg.Backends. A nil prober looks backends up on PATH.
func NewMatrix(cfg *Config, suites SuiteRunner, prober BackendProber, out io.Writer) *Matrix {
	logger := cfg.Log
	if logger == nil {
		logger = log.New()
	}
	if prober == nil {
		prober = PathProber{}
	}
	return &Matrix{
		cfg:     cfg,
		suites:  suites,
		prober:  prober,
		cleaner: cleanup.NewCleaner(logger, runner.TestFileExt),
		out:     out,
		log:     logger.New("component", "matrix"),
		sleep:   sleepContext,
	}
}

// Run purges stale artifacts, then runs one suite per available backend in order, pausing
// for the cooldown between suites. Unavailable backends are skipped and listed at the end.
// A protected purge extension aborts the run before anything is deleted or executed.
func (m *Matrix) Run(ctx context.Context) (*types.MatrixSummary, error) {
	if err := m.purge(); err != nil {
		return nil, err
	}

	summary := &types.MatrixSummary{}
	ran := 0
	for _, backend := range m.cfg.Backends {
		if ctx.Err() != nil {
			m.log.Warn("Matrix interrupted", "remaining", backend)
			break
		}

		if !m.prober.Available(backend) {
			m.log.Info("Backend not found, skipping", "backend", backend)
			metrics.RecordSkippedBackend(backend)
			summary.Results = append(summary.Results, types.BackendResult{Backend: backend, Skipped: true})
			continue
		}

		if ran > 0 && m.cfg.Cooldown > 0 {
			if err := m.sleep(ctx, m.cfg.Cooldown); err != nil {
				break
			}
		}
		ran++

		fmt.Fprintln(m.out, reporting.FormatBanner(backend))
		suite, err := m.suites.RunSuite(ctx, backend)
		if err != nil {
			m.log.Error("Suite failed to complete", "backend", backend, "err", err)
			metrics.RecordErrorDetails("suite", err)
		}
		summary.Results = append(summary.Results, types.BackendResult{Backend: backend, Summary: suite, Err: err})
	}

	reporting.RenderMatrix(m.out, summary, m.cfg.Color)
	return summary, nil
}

func (m *Matrix) purge() error {
	for _, ext := range m.cfg.PurgeExts {
		_, err := m.cleaner.RemoveByExtension(m.cfg.TestDir, ext)
		var protected *cleanup.ProtectedExtensionError
		if errors.As(err, &protected) {
			return NewRuntimeError(err)
		}
		if err != nil {
			m.log.Warn("Failed to purge stale artifacts", "ext", ext, "err", err)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunMatrix runs the multi-backend driver and converts its results into an error
// understood by ExitCode: suite errors win over test failures.
func RunMatrix(ctx context.Context, cfg *Config, prober BackendProber, out io.Writer) error {
	harness, err := NewHarness(cfg, out)
	if err != nil {
		return err
	}

	summary, err := NewMatrix(cfg, harness, prober, out).Run(ctx)
	if err != nil {
		return err
	}
	if err := writeMetrics(cfg); err != nil {
		return err
	}
	return MatrixError(summary)
}

// MatrixError aggregates per-backend results into a single error, or nil if every
// attempted backend passed.
func MatrixError(summary *types.MatrixSummary) error {
	var (
		runtimeErrs *multierror.Error
		failed      []string
	)
	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			runtimeErrs = multierror.Append(runtimeErrs, fmt.Errorf("%s: %w", r.Backend, r.Err))
		case r.Summary != nil && r.Summary.Failed > 0:
			failed = append(failed, r.Backend)
		}
	}
	if err := runtimeErrs.ErrorOrNil(); err != nil {
		return NewRuntimeError(err)
	}
	if len(failed) > 0 {
		return NewTestFailureError(fmt.Sprintf("tests failed with %v", failed))
	}
	return nil
}
