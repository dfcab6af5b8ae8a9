package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zenc-lang/zc-conform/types"
)

const (
	MetricsNamespace = "zc_conform"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed test programs",
	}, []string{
		"backend",
		"result",
	})

	testTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "test_timeouts_total",
		Help:      "Count of test programs killed after exceeding their timeout",
	}, []string{
		"backend",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Wall clock time of a single compiler invocation",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{
		"backend",
	})

	suiteResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_results",
		Help:      "Result of suite runs",
	}, []string{
		"backend",
		"run_id",
		"result",
	})

	suitePassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_tests_passed",
		Help:      "Number of passed tests per suite run",
	}, []string{
		"backend",
		"run_id",
	})

	suiteFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_tests_failed",
		Help:      "Number of failed tests per suite run",
	}, []string{
		"backend",
		"run_id",
	})

	suiteDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_duration_seconds",
		Help:      "Duration of suite runs",
	}, []string{
		"backend",
		"run_id",
	})

	backendsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "backends_skipped_total",
		Help:      "Count of backends skipped because they were not found",
	}, []string{
		"backend",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordOutcome counts a single test outcome.
func RecordOutcome(backend string, outcome types.TestOutcome) {
	result := outcome.Status()
	if !isValidResult(result) {
		log.Error("RecordOutcome - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"backend", backend,
			"test", outcome.Case.Name,
			"result", result)
	}
	testsTotal.WithLabelValues(backend, string(result)).Inc()
	testDuration.WithLabelValues(backend).Observe(outcome.Duration.Seconds())
	if outcome.TimedOut {
		testTimeoutsTotal.WithLabelValues(backend).Inc()
	}
}

func RecordSuite(
	backend string,
	runID string,
	result types.TestStatus,
	passed int,
	failed int,
	duration time.Duration,
) {
	suiteResults.WithLabelValues(backend, runID, string(result)).Set(1)
	suitePassed.WithLabelValues(backend, runID).Add(float64(passed))
	suiteFailed.WithLabelValues(backend, runID).Add(float64(failed))
	suiteDuration.WithLabelValues(backend, runID).Set(duration.Seconds())
}

func RecordSkippedBackend(backend string) {
	backendsSkipped.WithLabelValues(backend).Inc()
}

// WriteTextfile writes every registered metric to path in the Prometheus text format,
// suitable for a node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
