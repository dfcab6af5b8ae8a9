// Package sandbox provisions isolated, temporary working directories for test processes.
package sandbox

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultPrefix is the name prefix of every sandbox directory
const DefaultPrefix = "zc-conform-"

// Provisioner creates one fresh directory per invocation and always removes it afterwards.
type Provisioner struct {
	BaseDir string // Parent directory for sandboxes, os.TempDir() when empty
	Prefix  string // Directory name prefix, DefaultPrefix when empty
	Log     log.Logger
}

// NewProvisioner creates a provisioner rooted at baseDir.
func NewProvisioner(baseDir string, logger log.Logger) *Provisioner {
	if logger == nil {
		logger = log.Root()
	}
	return &Provisioner{
		BaseDir: baseDir,
		Prefix:  DefaultPrefix,
		Log:     logger,
	}
}

// With creates a uniquely named empty directory, calls fn with its path and removes the
// directory with all of its contents before returning. Removal also happens when fn panics;
// the panic is then propagated to the caller.
func (p *Provisioner) With(fn func(dir string) error) error {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	dir, err := os.MkdirTemp(p.BaseDir, prefix)
	if err != nil {
		return fmt.Errorf("failed to create sandbox: %w", err)
	}
	defer p.remove(dir)

	return fn(dir)
}

func (p *Provisioner) remove(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger := p.Log
		if logger == nil {
			logger = log.Root()
		}
		logger.Error("Failed to remove sandbox", "dir", dir, "err", err)
	}
}
