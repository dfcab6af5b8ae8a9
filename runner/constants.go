package runner

import "time"

// Test execution constants
const (
	// DefaultTestTimeout is the default wall clock limit for a single test
	DefaultTestTimeout = 30 * time.Second

	// Compiler driver invocation
	RunCommand   = "run"
	EmitCFlag    = "--emit-c"
	BackendFlag  = "--cc"
	ArtifactName = "out.c"

	// Default compiler binary name, without platform suffix
	DefaultCompilerName = "zc"

	// TestFileExt identifies test programs during discovery
	TestFileExt = ".zc"

	// DefaultWaitDelay bounds how long we wait for output pipes after the process is killed
	DefaultWaitDelay = 2 * time.Second

	// MaxReasonableConcurrency is the worker count above which we warn about resource exhaustion
	MaxReasonableConcurrency = 32
)

// DefaultSearchDirs are the build output directories searched for the compiler, in order
var DefaultSearchDirs = []string{"./build/Debug", "./build", "."}
