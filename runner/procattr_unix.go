//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command in its own process group so that a timeout
// kills the compiler together with any children it spawned (the C backend, the test binary).
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
