//go:build unix

package guardian

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup places the child in its own process group so that the
// kill escalation reaches every descendant, not just the root. Some tools
// spawn supervised children that outlive a root-only signal.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalTree delivers sig to the whole process group rooted at pid.
// ESRCH means the group is already gone, which is not an error here.
func signalTree(pid int, sig unix.Signal) error {
	err := unix.Kill(-pid, sig)
	if err == unix.ESRCH {
		return nil
	}
	return err
}

func gracefulStop(pid int) error {
	return signalTree(pid, unix.SIGTERM)
}

func forceKill(pid int) error {
	return signalTree(pid, unix.SIGKILL)
}

// groupAlive probes the whole process group with signal 0; nothing is
// delivered. Probing only the root would miss a descendant that survives
// SIGTERM after the root has exited.
func groupAlive(pid int) bool {
	return unix.Kill(-pid, 0) == nil
}
