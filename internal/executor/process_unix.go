//go:build !windows

package executor

import (
	"fmt"
	"os/exec"
	"syscall"
)

// configureProcAttr sets the child up as the leader of a new process group
// so that the whole tree it spawns (MPI launchers, shell wrappers) can be
// signaled together.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalProcessGroup sends sig to the entire process group rooted at pid,
// falling back to signaling the individual process if the group send fails
// (e.g. the group leader already exited).
func signalProcessGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if err2 := syscall.Kill(pid, sig); err2 != nil {
			return fmt.Errorf("executor: signal group -%d failed: %v; signal process %d also failed: %v", pid, err, pid, err2)
		}
	}
	return nil
}
