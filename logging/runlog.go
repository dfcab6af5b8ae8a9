// Package logging writes the persistent per-suite result log.
package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
)

const (
	// FilePrefix starts every run log name.
	FilePrefix = "test_results_"
	// FileExt is the extension of run logs.
	FileExt = ".log"

	timestampLayout = "20060102_150405"

	// maxCollisionSuffix bounds the _N suffixes tried when a log name is taken.
	maxCollisionSuffix = 1000
)

// FileName returns the base name of the log for a suite on backend started at startedAt.
func FileName(backend string, startedAt time.Time) string {
	return fmt.Sprintf("%s%s_%s%s", FilePrefix, safeFilename(backend), startedAt.Format(timestampLayout), FileExt)
}

// WriteRunLog writes entries, joined by newlines and stripped of ANSI escapes, to a new log
// file in dir. An existing file is never overwritten: when the name is taken a numeric
// suffix is appended. It returns the path written.
func WriteRunLog(dir, backend string, startedAt time.Time, entries []string) (string, error) {
	content := stripansi.Strip(strings.Join(entries, "\n"))

	base := strings.TrimSuffix(FileName(backend, startedAt), FileExt)
	for n := 0; n <= maxCollisionSuffix; n++ {
		name := base + FileExt
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, FileExt)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create log file %s: %w", path, err)
		}

		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write log file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close log file %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to create log file in %s: too many runs named %s", dir, base)
}

// safeFilename replaces characters that would escape dir or are awkward in file names.
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		" ", "_",
	)
	return replacer.Replace(s)
}
