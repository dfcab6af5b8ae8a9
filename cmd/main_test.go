package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	conform "github.com/zenc-lang/zc-conform"
	"github.com/zenc-lang/zc-conform/exitcodes"
)

const fakeDriver = `#!/bin/sh
case "$(head -n 1 "$2")" in
  fail*) echo "error: rejected" >&2; exit 1 ;;
  *) echo "int main(void){return 0;}" > out.c ;;
esac
`

type cliFixture struct {
	driver  string
	testDir string
}

func newCLIFixture(t *testing.T, tests map[string]string) cliFixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake driver requires a POSIX shell")
	}
	driver := filepath.Join(t.TempDir(), "zc")
	require.NoError(t, os.WriteFile(driver, []byte(fakeDriver), 0755))

	dir := t.TempDir()
	for name, body := range tests {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body+"\n"), 0644))
	}
	return cliFixture{driver: driver, testDir: dir}
}

// run executes the app in-process and returns the exit code it would have used.
func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(context.Background(), append([]string{"zc-conform"}, args...))
	return conform.ExitCode(err), out.String()
}

func TestExitCodeBehavior(t *testing.T) {
	testCases := []struct {
		name           string
		tests          map[string]string
		extraArgs      []string
		expectedStatus int
		expectedOutput string
	}{
		{
			name:           "Passing tests should exit with code 0",
			tests:          map[string]string{"a.zc": "pass", "b.zc": "pass"},
			expectedStatus: exitcodes.Success,
			expectedOutput: "  Passed: 2\n  Failed: 0\n",
		},
		{
			name:           "Failing tests should exit with code 1",
			tests:          map[string]string{"a.zc": "pass", "b.zc": "fail", "c.zc": "pass"},
			expectedStatus: exitcodes.TestFailure,
			expectedOutput: "  Passed: 2\n  Failed: 1\n",
		},
		{
			name:           "No tests should exit with code 0",
			expectedStatus: exitcodes.Success,
			expectedOutput: "No tests found in ",
		},
		{
			name:           "Invalid config should exit with code 2",
			tests:          map[string]string{"a.zc": "pass"},
			extraArgs:      []string{"--timeout", "0s"},
			expectedStatus: exitcodes.RuntimeErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCLIFixture(t, tc.tests)
			args := append([]string{"--compiler", f.driver, "--dir", f.testDir, "--no-color", "-j", "2"}, tc.extraArgs...)

			code, out := run(t, args...)
			assert.Equal(t, tc.expectedStatus, code, out)
			if tc.expectedOutput != "" {
				assert.Contains(t, out, tc.expectedOutput)
			}
		})
	}
}

func TestMissingCompilerExitsWithOne(t *testing.T) {
	f := newCLIFixture(t, map[string]string{"a.zc": "pass"})
	code, _ := run(t, "--dir", f.testDir, "--search-dirs", t.TempDir())
	assert.Equal(t, exitcodes.TestFailure, code)
}

func TestMatrixCommand(t *testing.T) {
	f := newCLIFixture(t, map[string]string{"a.zc": "pass", "stale.c": "x"})

	// "sh" is on PATH everywhere the fake driver can run.
	code, out := run(t, "ci", "--compiler", f.driver, "--dir", f.testDir, "--no-color",
		"--backends", "sh", "--backends", "zc-conform-missing-cc", "--cooldown", "0s")

	assert.Equal(t, exitcodes.Success, code, out)
	assert.Contains(t, out, "=== Testing with sh ===")
	assert.Contains(t, out, "  - zc-conform-missing-cc\n")
	assert.NoFileExists(t, filepath.Join(f.testDir, "stale.c"))
	assert.FileExists(t, filepath.Join(f.testDir, "a.zc"))
}

func TestMatrixRefusesProtectedPurge(t *testing.T) {
	f := newCLIFixture(t, map[string]string{"a.zc": "pass"})

	code, _ := run(t, "matrix", "--compiler", f.driver, "--dir", f.testDir, "--purge-ext", ".zc")

	assert.Equal(t, exitcodes.RuntimeErr, code)
	assert.FileExists(t, filepath.Join(f.testDir, "a.zc"))
}
