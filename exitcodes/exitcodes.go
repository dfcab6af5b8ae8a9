// Package exitcodes defines the exit codes used by zc-conform.
package exitcodes

// Exit code constants used by zc-conform:
//
// * Success (0): every test passed, or there were no tests to run
// * TestFailure (1): one or more tests failed, or the compiler driver was not found
// * RuntimeErr (2): the harness itself failed, e.g. bad configuration or an unwritable log
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
