//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the child in its own process group so the timeout
// kill also reaches anything it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killWaitDelay
}
