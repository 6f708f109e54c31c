package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"confship/internal/event"
)

// WebhookNotifier POSTs the event as JSON to a generic HTTP endpoint.
// Transient failures are retried with the client's backoff before the
// delivery is reported failed.
type WebhookNotifier struct {
	url    string
	client *retryablehttp.Client
}

// NewWebhook creates a generic webhook notifier for url.
func NewWebhook(url string) *WebhookNotifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.HTTPClient.Timeout = notifyTimeout
	client.Logger = nil
	return &WebhookNotifier{url: url, client: client}
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, e event.Event) error {
	body, err := json.Marshal(struct {
		event.Event
		Message string `json:"message"`
	}{Event: e, Message: Message(e)})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %s", resp.Status)
	}
	return nil
}
