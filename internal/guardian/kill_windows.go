//go:build windows

package guardian

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {}

// gracefulStop asks taskkill to end the tree; windows has no SIGTERM
// equivalent that reaches descendants.
func gracefulStop(pid int) error {
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(pid)).Run()
}

func forceKill(pid int) error {
	if err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run(); err == nil {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

// groupAlive reports whether the root pid can still be opened. Windows has
// no process-group probe; taskkill /T already walks the tree on both
// escalation steps.
func groupAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
