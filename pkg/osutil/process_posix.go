//go:build unix

// Package osutil holds process helpers for the external scanners the
// validator shells out to.
package osutil

import (
	"errors"
	"os/exec"
	"syscall"
)

// SetProcessGroup runs the command in its own process group so a timeout
// can take down the runner and everything it spawned (uvx, pipx and the
// Python interpreter behind them).
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// SetProcessGroupKill makes context cancellation kill the whole process
// group. Must be called after SetProcessGroup and before cmd.Start().
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
}
