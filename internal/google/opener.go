package google

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener shows a URL to the operator.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error { return f(url) }

// BrowserOpener opens URLs in a new tab of the system browser.
type BrowserOpener struct{}

// Open starts the platform's URL handler without waiting for it.
func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("opening browser: unsupported platform %s", runtime.GOOS)
	}
	return cmd.Start()
}
