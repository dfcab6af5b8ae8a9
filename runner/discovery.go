package runner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zenc-lang/zc-conform/types"
)

// DiscoverTests walks root recursively and returns every file with the given extension,
// sorted lexicographically by path so that submission order is deterministic.
func DiscoverTests(root, ext string) ([]types.TestCase, error) {
	if ext == "" {
		ext = TestFileExt
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", root, err)
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan test directory '%s': %w", root, err)
	}

	sort.Strings(paths)

	cases := make([]types.TestCase, 0, len(paths))
	for _, p := range paths {
		cases = append(cases, types.NewTestCase(p))
	}
	return cases, nil
}
