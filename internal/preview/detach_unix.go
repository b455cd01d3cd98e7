//go:build unix

package preview

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so a Ctrl+C aimed at the
// CLI does not reach a background preview server.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
