package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"confship/internal/event"
)

// SlackNotifier posts deployment outcomes to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
}

// NewSlack creates a Slack webhook notifier.
func NewSlack(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

// Notify implements Notifier.
func (s *SlackNotifier) Notify(ctx context.Context, e event.Event) error {
	msg := &slack.WebhookMessage{
		Text: Message(e),
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
