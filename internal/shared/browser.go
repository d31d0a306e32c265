package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenTarget hands a URL or file path to the platform opener (open, xdg-open, start).
//
// Used by `serve --open` and `cover --open`.
func OpenTarget(target string) error {
	var cmd *exec.Cmd
	switch rt := getRuntime(); rt {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	default:
		return fmt.Errorf("%w: unsupported platform %s", ErrNotImplemented, rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}
