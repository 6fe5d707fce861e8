package repository

import "context"

// NotificationSink delivers alerts to the operator. Both calls are best-effort.
type NotificationSink interface {
	// Notify raises a local alert (desktop popup, voice, live stream).
	Notify(ctx context.Context, title, body string) error
	// SendDirectAlert forwards text to an always-on remote channel.
	SendDirectAlert(ctx context.Context, text string) error
}
