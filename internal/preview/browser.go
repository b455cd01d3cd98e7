package preview

import (
	"context"
	"os/exec"
	"runtime"
)

// OpenBrowser asks the desktop to open url. The opener runs detached and
// its result is only the start error.
func OpenBrowser(ctx context.Context, url string) error {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		name = "xdg-open"
	}
	// #nosec G204 -- fixed opener binary, url built from config host and port
	cmd := exec.CommandContext(ctx, name, append(args, url)...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
