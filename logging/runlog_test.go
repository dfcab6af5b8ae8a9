package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var started = time.Date(2026, 10, 19, 8, 30, 15, 0, time.Local)

func TestFileName(t *testing.T) {
	tests := []struct {
		backend  string
		expected string
	}{
		{"gcc", "test_results_gcc_20261019_083015.log"},
		{"zig cc", "test_results_zig_cc_20261019_083015.log"},
		{"/usr/bin/clang", "test_results__usr_bin_clang_20261019_083015.log"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(tt.backend, started))
		})
	}
}

func TestWriteRunLog(t *testing.T) {
	dir := t.TempDir()
	entries := []string{
		"** Zen C Test Suite: gcc **\nStarted: 20261019_083015\n",
		"[PASS] a.zc",
		"[FAIL] b.zc",
		"\nSummary:\n",
	}

	path, err := WriteRunLog(dir, "gcc", started, entries)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test_results_gcc_20261019_083015.log"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"** Zen C Test Suite: gcc **\nStarted: 20261019_083015\n\n[PASS] a.zc\n[FAIL] b.zc\n\nSummary:\n",
		string(data))
}

func TestWriteRunLogStripsANSI(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteRunLog(dir, "gcc", started, []string{"\x1b[1mheader\x1b[0m", "\x1b[91merror:\x1b[0m bad"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "header\nerror: bad", string(data))
}

func TestWriteRunLogNeverOverwrites(t *testing.T) {
	dir := t.TempDir()

	first, err := WriteRunLog(dir, "gcc", started, []string{"first"})
	require.NoError(t, err)
	second, err := WriteRunLog(dir, "gcc", started, []string{"second"})
	require.NoError(t, err)
	third, err := WriteRunLog(dir, "gcc", started, []string{"third"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "test_results_gcc_20261019_083015.log"), first)
	assert.Equal(t, filepath.Join(dir, "test_results_gcc_20261019_083015_1.log"), second)
	assert.Equal(t, filepath.Join(dir, "test_results_gcc_20261019_083015_2.log"), third)

	for path, want := range map[string]string{first: "first", second: "second", third: "third"} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestWriteRunLogDistinctBackends(t *testing.T) {
	dir := t.TempDir()

	gcc, err := WriteRunLog(dir, "gcc", started, nil)
	require.NoError(t, err)
	clang, err := WriteRunLog(dir, "clang", started, nil)
	require.NoError(t, err)

	assert.NotEqual(t, gcc, clang)
	list, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestWriteRunLogMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := WriteRunLog(dir, "gcc", started, []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create log file")
}
