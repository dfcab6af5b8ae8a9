// Package runner provides the components that execute conformance tests concurrently.
//
// The main components are:
//   - TestExecutor: Runs one test through the compiler driver inside a fresh sandbox,
//     enforcing a wall clock timeout and checking for the generated artifact
//   - Scheduler: Fans test cases out over a bounded worker pool and exposes the
//     outcomes strictly in submission order through a Batch
//   - DiscoverTests: Finds test programs below a directory in deterministic order
//   - FindCompiler: Locates the compiler driver in an ordered list of build directories
//
// Every per-test failure, including timeouts and failures to start the compiler, is
// converted into a failing TestOutcome; nothing below the Scheduler returns an error
// that would abort the whole suite.
package runner
