package tui

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// openBrowser is a package-level variable to allow mocking in tests.
var openBrowser = openURL

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) error {
	if err := clipboardWriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

// openURL opens url with the platform's default handler.
func openURL(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("no url opener: install xdg-utils")
		}
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("opening urls not supported on %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open url: %w", err)
	}

	// reap the opener without blocking the ui
	go cmd.Wait() //nolint:errcheck
	return nil
}
