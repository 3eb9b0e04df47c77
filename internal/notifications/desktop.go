package notifications

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const desktopTimeout = 5 * time.Second

// commandRunner executes a notification helper binary.
type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// desktopNotifier shows a local notification with osascript on macOS and
// notify-send elsewhere.
type desktopNotifier struct {
	goos string
	run  commandRunner
}

func newDesktopNotifier(goos string, run commandRunner) *desktopNotifier {
	return &desktopNotifier{goos: goos, run: run}
}

func (d *desktopNotifier) name() string { return "desktop" }

func (d *desktopNotifier) send(ctx context.Context, msg message) error {
	if d == nil || d.run == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, desktopTimeout)
	defer cancel()

	if d.goos == "darwin" {
		return d.run(ctx, "osascript", "-e", appleScript(msg))
	}
	args := []string{"--app-name=followup"}
	if msg.priority == "high" {
		args = append(args, "--urgency=critical")
	}
	args = append(args, msg.title, msg.body)
	return d.run(ctx, "notify-send", args...)
}

func appleScript(msg message) string {
	script := fmt.Sprintf("display notification %s with title %s", appleQuote(msg.body), appleQuote(msg.title))
	if msg.sound != "" {
		script += " sound name " + appleQuote(msg.sound)
	}
	return script
}

func appleQuote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
