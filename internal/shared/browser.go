package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var (
	getRuntime = func() string { return runtime.GOOS }
	getenv     = os.Getenv
)

// OpenBrowser starts the user's browser on url without waiting for it to exit.
//
// $BROWSER wins when set; otherwise the platform opener is used on macOS, Linux, and Windows.
// Callers should print url when this fails.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(url)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	// Reap the opener so it does not linger as a zombie.
	go cmd.Wait()
	return nil
}

func browserCommand(url string) (*exec.Cmd, error) {
	if browser := strings.Fields(getenv("BROWSER")); len(browser) > 0 {
		return exec.Command(browser[0], append(browser[1:], url)...), nil
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: cannot open a browser on %s", ErrNotImplemented, rt)
	}
}
