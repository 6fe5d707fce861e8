package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/user/slotwatch/internal/repository"
)

// FanOut delivers every notification to all sinks. A failing sink does not
// stop delivery to the others.
type FanOut []repository.NotificationSink

func (f FanOut) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, title, body); err != nil {
			slog.Warn("Notification sink failed", "sink", sinkName(s), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f FanOut) SendDirectAlert(ctx context.Context, text string) error {
	var errs []error
	for _, s := range f {
		if err := s.SendDirectAlert(ctx, text); err != nil {
			slog.Warn("Direct alert sink failed", "sink", sinkName(s), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sinkName(s repository.NotificationSink) string {
	switch s.(type) {
	case *DesktopSink:
		return "desktop"
	case *WebhookSink:
		return "webhook"
	case *Hub:
		return "stream"
	default:
		return "custom"
	}
}
