// Package cleanup removes stale build artifacts from a test tree.
package cleanup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
)

// ProtectedExtensionError is returned when asked to delete files that must never be removed,
// such as the test sources themselves.
type ProtectedExtensionError struct {
	Ext string
}

func (e *ProtectedExtensionError) Error() string {
	return fmt.Sprintf("refusing to delete protected file type %q", e.Ext)
}

// Cleaner deletes files by extension under a root directory.
type Cleaner struct {
	protected []string
	log       log.Logger
}

// NewCleaner creates a Cleaner that refuses to delete any of the protected extensions.
func NewCleaner(logger log.Logger, protected ...string) *Cleaner {
	if logger == nil {
		logger = log.New()
	}
	normalized := make([]string, 0, len(protected))
	for _, ext := range protected {
		normalized = append(normalized, normalizeExt(ext))
	}
	return &Cleaner{
		protected: normalized,
		log:       logger.New("component", "cleanup"),
	}
}

// RemoveByExtension deletes every regular file under root whose name ends in ext and
// returns the number removed. An empty extension, or one ending in a protected extension
// (".zc", ".neg.zc"), is rejected before the tree is walked. Files ending in a protected
// extension are never removed. Individual removal failures do not stop the walk and are
// returned together.
func (c *Cleaner) RemoveByExtension(root, ext string) (int, error) {
	ext = normalizeExt(ext)
	if ext == "" || ext == "." {
		return 0, fmt.Errorf("extension cannot be empty")
	}
	if c.isProtected(ext) {
		return 0, &ProtectedExtensionError{Ext: ext}
	}

	var (
		removed int
		result  *multierror.Error
	)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result = multierror.Append(result, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		if c.isProtected(d.Name()) {
			c.log.Warn("Skipping protected file", "path", path)
			return nil
		}
		if err := os.Remove(path); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to remove %s: %w", path, err))
			return nil
		}
		c.log.Debug("Removed stale artifact", "path", path)
		removed++
		return nil
	})
	if walkErr != nil {
		result = multierror.Append(result, walkErr)
	}

	c.log.Info("Purged artifacts", "root", root, "ext", ext, "removed", removed)
	return removed, result.ErrorOrNil()
}

// isProtected reports whether name ends in a protected extension, ignoring case.
func (c *Cleaner) isProtected(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range c.protected {
		if strings.HasSuffix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
