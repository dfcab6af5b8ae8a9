package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CompilerNotFoundError is returned when no compiler binary exists in any search directory.
type CompilerNotFoundError struct {
	Name     string
	Searched []string
}

func (e *CompilerNotFoundError) Error() string {
	return fmt.Sprintf("'%s' binary not found (searched: %s)", e.Name, strings.Join(e.Searched, ", "))
}

// CompilerBinaryName returns the platform specific file name of the compiler driver.
func CompilerBinaryName(goos string) string {
	if goos == "windows" {
		return DefaultCompilerName + ".exe"
	}
	return DefaultCompilerName
}

// FindCompiler returns the absolute path of the first regular file called name found in dirs.
// Directories are searched in the given order. An empty name means the platform default.
func FindCompiler(dirs []string, name string) (string, error) {
	if name == "" {
		name = CompilerBinaryName(runtime.GOOS)
	}
	if len(dirs) == 0 {
		dirs = DefaultSearchDirs
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path for compiler '%s': %w", candidate, err)
		}
		return abs, nil
	}

	return "", &CompilerNotFoundError{Name: name, Searched: dirs}
}

// ResolveCompiler validates an explicitly configured compiler path.
func ResolveCompiler(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", &CompilerNotFoundError{Name: filepath.Base(path), Searched: []string{filepath.Dir(path)}}
	}
	return filepath.Abs(path)
}
