//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command in its own process group and
// makes cancellation kill the whole group, so children spawned by npm or the
// browser do not outlive the deadline.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
