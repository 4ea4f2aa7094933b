// +build !windows

package oscmd

import (
	"os/exec"
	"syscall"
)

func osSpecificCommandConfig(cmd *exec.Cmd) {
	// run the tool in a separate process group
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: 0}
}
