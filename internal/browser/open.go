// Package browser opens links in the user's default browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsupportedScheme is returned for anything but an http(s) link.
var ErrUnsupportedScheme = errors.New("browser: only http and https links can be opened")

// Open opens link in the user's default browser without waiting for it.
func Open(link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrUnsupportedScheme
	}
	cmd, err := command(runtime.GOOS, u.String())
	if err != nil {
		return err
	}
	return cmd.Start()
}

// command builds the platform launcher for link.
func command(goos, link string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", link), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", link), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", link), nil
	default:
		return nil, fmt.Errorf("browser: unsupported OS %s", goos)
	}
}
