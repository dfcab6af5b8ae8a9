package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenc-lang/zc-conform/sandbox"
	"github.com/zenc-lang/zc-conform/types"
)

// fakeCompiler behaves like the driver: `zc run <file> --emit-c [args...]`.
// The first word of the test file selects its behaviour.
const fakeCompiler = `#!/bin/sh
src="$2"
case "$(head -n 1 "$src")" in
  fail*)
    echo "compiling $src"
    echo "error: type mismatch" >&2
    exit 1
    ;;
  noartifact*)
    exit 0
    ;;
  hang*)
    sleep 30
    echo "int main(void){return 0;}" > out.c
    exit 0
    ;;
  args*)
    echo "args: $*"
    echo "int main(void){return 0;}" > out.c
    exit 0
    ;;
  *)
    echo "ok $src"
    echo "int main(void){return 0;}" > out.c
    exit 0
    ;;
esac
`

func skipIfNoShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler requires a POSIX shell")
	}
}

func writeFakeCompiler(t *testing.T) string {
	t.Helper()
	skipIfNoShell(t)
	path := filepath.Join(t.TempDir(), "zc")
	require.NoError(t, os.WriteFile(path, []byte(fakeCompiler), 0755))
	return path
}

func writeTestCase(t *testing.T, dir, name, body string) types.TestCase {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body+"\n"), 0644))
	return types.NewTestCase(path)
}

type executorFixture struct {
	executor    TestExecutor
	sandboxBase string
	testDir     string
}

func newExecutorFixture(t *testing.T, timeout time.Duration) executorFixture {
	t.Helper()
	compiler := writeFakeCompiler(t)
	sandboxBase := t.TempDir()

	executor, err := NewTestExecutor(ExecutorConfig{
		Compiler:  compiler,
		Timeout:   timeout,
		WaitDelay: 500 * time.Millisecond,
		Sandboxes: sandbox.NewProvisioner(sandboxBase, log.New()),
		Log:       log.New(),
	})
	require.NoError(t, err)

	return executorFixture{executor: executor, sandboxBase: sandboxBase, testDir: t.TempDir()}
}

func (f executorFixture) assertNoLeakedSandboxes(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.sandboxBase)
	require.NoError(t, err)
	assert.Empty(t, entries, "sandbox directories must be removed")
}

func TestNewTestExecutor(t *testing.T) {
	tests := []struct {
		name        string
		cfg         ExecutorConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid inputs should succeed",
			cfg:  ExecutorConfig{Compiler: "/usr/bin/zc", Timeout: time.Minute},
		},
		{
			name: "zero timeout should use default and succeed",
			cfg:  ExecutorConfig{Compiler: "/usr/bin/zc"},
		},
		{
			name:        "empty compiler should return error",
			cfg:         ExecutorConfig{Timeout: time.Minute},
			expectError: true,
			errorMsg:    "compiler cannot be empty",
		},
		{
			name:        "negative timeout should return error",
			cfg:         ExecutorConfig{Compiler: "/usr/bin/zc", Timeout: -time.Second},
			expectError: true,
			errorMsg:    "timeout cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor, err := NewTestExecutor(tt.cfg)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, executor)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, executor)

			impl := executor.(*testExecutor)
			if tt.cfg.Timeout == 0 {
				assert.Equal(t, DefaultTestTimeout, impl.timeout)
			}
			assert.NotNil(t, impl.sandboxes)
			assert.NotNil(t, impl.cmdBuilder)
		})
	}
}

func TestBuildTestArgs(t *testing.T) {
	e := &testExecutor{}
	tc := types.NewTestCase("/repo/tests/hello.zc")

	args := e.buildTestArgs(tc, types.RunConfig{Backend: "clang", ExtraArgs: []string{"-O2", "--verbose"}})
	assert.Equal(t, []string{"run", "/repo/tests/hello.zc", "--emit-c", "--cc", "clang", "-O2", "--verbose"}, args)

	args = e.buildTestArgs(tc, types.RunConfig{})
	assert.Equal(t, []string{"run", "/repo/tests/hello.zc", "--emit-c"}, args)
}

func TestExecutePass(t *testing.T) {
	f := newExecutorFixture(t, 10*time.Second)
	tc := writeTestCase(t, f.testDir, "hello.zc", "pass")

	outcome := f.executor.Execute(context.Background(), tc, types.RunConfig{Backend: "gcc"})

	assert.True(t, outcome.Success)
	assert.Equal(t, tc, outcome.Case)
	assert.Contains(t, outcome.Diagnostic, "ok "+tc.Path, "output is retained on success")
	assert.False(t, outcome.TimedOut)
	assert.Greater(t, outcome.Duration, time.Duration(0))
	f.assertNoLeakedSandboxes(t)
}

func TestExecutePassesArguments(t *testing.T) {
	f := newExecutorFixture(t, 10*time.Second)
	tc := writeTestCase(t, f.testDir, "args.zc", "args")

	outcome := f.executor.Execute(context.Background(), tc, types.RunConfig{Backend: "tcc", ExtraArgs: []string{"--strict"}})

	require.True(t, outcome.Success, outcome.Diagnostic)
	assert.Contains(t, outcome.Diagnostic, "args: run "+tc.Path+" --emit-c --cc tcc --strict")
}

func TestExecuteNonZeroExit(t *testing.T) {
	f := newExecutorFixture(t, 10*time.Second)
	tc := writeTestCase(t, f.testDir, "bad.zc", "fail")

	outcome := f.executor.Execute(context.Background(), tc, types.RunConfig{Backend: "gcc"})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Diagnostic, "compiling "+tc.Path)
	assert.Contains(t, outcome.Diagnostic, "error: type mismatch", "stderr is part of the diagnostic")
	assert.NotContains(t, outcome.Diagnostic, "was not generated")
	f.assertNoLeakedSandboxes(t)
}

func TestExecuteMissingArtifact(t *testing.T) {
	f := newExecutorFixture(t, 10*time.Second)
	tc := writeTestCase(t, f.testDir, "silent.zc", "noartifact")

	outcome := f.executor.Execute(context.Background(), tc, types.RunConfig{Backend: "gcc"})

	assert.False(t, outcome.Success, "a zero exit without out.c is a failure")
	assert.Equal(t, "\nERROR: 'out.c' was not generated.", outcome.Diagnostic)
	f.assertNoLeakedSandboxes(t)
}

func TestExecuteTimeout(t *testing.T) {
	f := newExecutorFixture(t, 300*time.Millisecond)
	tc := writeTestCase(t, f.testDir, "loop.zc", "hang")

	start := time.Now()
	outcome := f.executor.Execute(context.Background(), tc, types.RunConfig{Backend: "gcc"})
	elapsed := time.Since(start)

	assert.False(t, outcome.Success)
	assert.True(t, outcome.TimedOut)
	assert.Contains(t, outcome.Diagnostic, "timed out after 300ms")
	assert.Less(t, elapsed, 10*time.Second, "the hung process group must be killed")
	f.assertNoLeakedSandboxes(t)
}

func TestExecuteInterrupted(t *testing.T) {
	f := newExecutorFixture(t, 30*time.Second)
	tc := writeTestCase(t, f.testDir, "loop.zc", "hang")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	outcome := f.executor.Execute(ctx, tc, types.RunConfig{Backend: "gcc"})

	assert.False(t, outcome.Success)
	assert.False(t, outcome.TimedOut)
	assert.Contains(t, outcome.Diagnostic, "interrupted")
	f.assertNoLeakedSandboxes(t)
}

func TestExecuteMissingCompiler(t *testing.T) {
	sandboxBase := t.TempDir()
	executor, err := NewTestExecutor(ExecutorConfig{
		Compiler:  filepath.Join(t.TempDir(), "does-not-exist"),
		Sandboxes: sandbox.NewProvisioner(sandboxBase, log.New()),
		Log:       log.New(),
	})
	require.NoError(t, err)

	outcome := executor.Execute(context.Background(), types.NewTestCase("/t/a.zc"), types.RunConfig{})

	assert.False(t, outcome.Success)
	assert.True(t, strings.HasPrefix(outcome.Diagnostic, "Exception: "), outcome.Diagnostic)

	entries, err := os.ReadDir(sandboxBase)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingSandboxer struct{}

func (failingSandboxer) With(func(dir string) error) error {
	return errors.New("failed to create sandbox: disk full")
}

func TestExecuteSandboxFailure(t *testing.T) {
	executor, err := NewTestExecutor(ExecutorConfig{
		Compiler:  "/usr/bin/zc",
		Sandboxes: failingSandboxer{},
		Log:       log.New(),
	})
	require.NoError(t, err)

	outcome := executor.Execute(context.Background(), types.NewTestCase("/t/a.zc"), types.RunConfig{})

	assert.False(t, outcome.Success)
	assert.Equal(t, "Exception: failed to create sandbox: disk full", outcome.Diagnostic)
}

func TestExecuteRecoversPanics(t *testing.T) {
	sandboxBase := t.TempDir()
	executor, err := NewTestExecutor(ExecutorConfig{
		Compiler:  "/usr/bin/zc",
		Sandboxes: sandbox.NewProvisioner(sandboxBase, log.New()),
		Log:       log.New(),
		CmdBuilder: func(ctx context.Context, name string, arg ...string) *exec.Cmd {
			panic("builder exploded")
		},
	})
	require.NoError(t, err)

	outcome := executor.Execute(context.Background(), types.NewTestCase("/t/a.zc"), types.RunConfig{})

	assert.False(t, outcome.Success)
	assert.Equal(t, "Exception: runtime error: builder exploded", outcome.Diagnostic)

	entries, err := os.ReadDir(sandboxBase)
	require.NoError(t, err)
	assert.Empty(t, entries, "sandbox is removed even when the invocation panics")
}
