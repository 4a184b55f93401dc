//go:build !windows

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts cmd as the leader of a new process group so the
// engine and every helper it spawns can be killed together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func killProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
