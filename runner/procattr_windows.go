//go:build windows

package runner

import "os/exec"

// configureProcessGroup relies on the default exec.CommandContext kill on windows.
func configureProcessGroup(cmd *exec.Cmd) {}
