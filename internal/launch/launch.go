// Package launch starts desktop applications and opens URLs.
package launch

import (
	"bytes"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/browser"
)

// Command builds the process for a launch. Override in tests.
var Command = exec.Command

type Launcher interface {
	Launch(command string) error
}

type Browser interface {
	OpenURL(url string) error
}

// Shell runs launch commands through sh without waiting for them.
type Shell struct{}

// Launch starts command in the background. Only a failure to start is
// reported; a non-zero exit is logged with the captured stderr.
func (Shell) Launch(command string) error {
	cmd := Command("sh", "-c", command)
	cmd.Stdout = os.Stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", command, err)
	}

	log.Debug("Launched", "cmd", command, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn("Launched command failed", "cmd", command, "err", err,
				"stderr", strings.TrimSpace(stderr.String()))
		}
	}()

	return nil
}

// Desktop opens URLs with the user's default browser.
type Desktop struct{}

func (Desktop) OpenURL(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
