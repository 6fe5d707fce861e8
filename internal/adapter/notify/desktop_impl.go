package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// CommandRunner starts an external command without waiting for it to finish.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// DesktopSink pops up a desktop notification and reads it aloud.
type DesktopSink struct {
	run CommandRunner
}

// NewDesktopSink creates a sink that shells out to notify-send and espeak.
// A nil runner starts real processes.
func NewDesktopSink(run CommandRunner) *DesktopSink {
	if run == nil {
		run = startDetached
	}
	return &DesktopSink{run: run}
}

func (s *DesktopSink) Notify(ctx context.Context, title, body string) error {
	return errors.Join(
		s.run(ctx, "notify-send", "-t", "30000", title, body),
		s.run(ctx, "espeak", title+" "+body),
	)
}

// SendDirectAlert is a no-op; the desktop is not a remote channel.
func (s *DesktopSink) SendDirectAlert(context.Context, string) error {
	return nil
}

func startDetached(_ context.Context, name string, args ...string) error {
	// Not bound to ctx: the popup should outlive the cycle that raised it.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("Notification command exited with error", "command", name, "error", err)
		}
	}()
	return nil
}
