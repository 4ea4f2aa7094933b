// +build windows

package oscmd

import (
	"os/exec"
	"syscall"
)

func osSpecificCommandConfig(cmd *exec.Cmd) {
	// the spawned tools must never pop up a console window
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
