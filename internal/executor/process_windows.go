//go:build windows

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcAttr starts the child in its own process group on Windows so
// a CTRL_BREAK_EVENT can later target it independently of the parent.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// signalProcessGroup has no direct Windows equivalent to a POSIX signal;
// SIGKILL-shaped escalation terminates the process outright; anything softer
// is treated the same way, since Windows test scripts have no SIGINT
// handler to catch.
func signalProcessGroup(pid int, sig syscall.Signal) error {
	proc, err := syscall.OpenProcess(syscall.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer syscall.CloseHandle(proc)
	return syscall.TerminateProcess(proc, 1)
}
