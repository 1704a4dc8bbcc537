package actuator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Command runs an external program per alert, for setups where the LED is
// driven by an existing script. The alert kind is passed in DROWSY_ALERT_KIND.
type Command struct {
	argv []string
}

// NewCommand creates a command actuator from argv.
func NewCommand(argv ...string) *Command {
	return &Command{argv: argv}
}

// Pulse runs the command and waits for it to exit or ctx to end.
func (c *Command) Pulse(ctx context.Context, kind drowsiness.Kind) error {
	if len(c.argv) == 0 {
		return fmt.Errorf("no command configured")
	}

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Env = append(os.Environ(), "DROWSY_ALERT_KIND="+kind.String())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", c.argv[0], err)
	}
	return nil
}

// Close is a no-op.
func (c *Command) Close() error {
	return nil
}
