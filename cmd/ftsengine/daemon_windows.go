//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonProcess detaches cmd into its own process group so it
// survives the launching console closing.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    true,
	}
}
