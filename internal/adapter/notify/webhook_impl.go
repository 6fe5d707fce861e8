package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxDirectAlertChars bounds the text forwarded to the remote channel.
const MaxDirectAlertChars = 1000

type webhookPayload struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// WebhookSink forwards direct alerts as a JSON POST.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: url, client: client}
}

// Notify is a no-op; only slot discoveries go to the remote channel.
func (s *WebhookSink) Notify(context.Context, string, string) error {
	return nil
}

func (s *WebhookSink) SendDirectAlert(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: truncate(text, MaxDirectAlertChars), At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
