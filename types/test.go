package types

import (
	"path/filepath"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

// TestCase is a single discovered test program.
type TestCase struct {
	Path string // Absolute path of the test file
	Name string // Base name of the test file, used for display
}

// NewTestCase creates a TestCase for the given path, deriving its name from the base name.
func NewTestCase(path string) TestCase {
	return TestCase{
		Path: path,
		Name: filepath.Base(path),
	}
}

// RunConfig describes one suite run against a single backend.
type RunConfig struct {
	Backend   string   // C compiler backend passed to the driver via --cc
	Jobs      int      // Number of concurrent workers
	TestDir   string   // Root directory the tests were discovered in
	ExtraArgs []string // Arguments forwarded verbatim to the compiler driver
}

// TestOutcome captures the result of running a single TestCase.
type TestOutcome struct {
	Case       TestCase
	Success    bool
	Diagnostic string        // Combined stdout and stderr plus any harness notes
	Duration   time.Duration // Wall clock time spent in the sandbox
	TimedOut   bool
}

// Status maps the outcome onto a TestStatus.
func (o TestOutcome) Status() TestStatus {
	if o.Success {
		return TestStatusPass
	}
	return TestStatusFail
}

// Failure is a failed test and its full diagnostic text.
type Failure struct {
	Name       string
	Diagnostic string
}

// SuiteSummary aggregates the outcomes of one suite run, in submission order.
type SuiteSummary struct {
	Backend   string
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Failures  []Failure
	LogPath   string
}

// Add folds an outcome into the summary.
func (s *SuiteSummary) Add(outcome TestOutcome) {
	if outcome.Success {
		s.Passed++
		return
	}
	s.Failed++
	s.Failures = append(s.Failures, Failure{
		Name:       outcome.Case.Name,
		Diagnostic: outcome.Diagnostic,
	})
}

// Total returns the number of outcomes folded into the summary.
func (s *SuiteSummary) Total() int {
	return s.Passed + s.Failed
}

// Status returns TestStatusFail if any test failed.
func (s *SuiteSummary) Status() TestStatus {
	if s.Failed > 0 {
		return TestStatusFail
	}
	return TestStatusPass
}

// ExitCode returns 0 when every test passed and 1 otherwise.
func (s *SuiteSummary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
