//go:build unix || linux || darwin

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonProcess detaches cmd into its own session so it
// survives the launching terminal closing.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
