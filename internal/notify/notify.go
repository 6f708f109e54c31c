// Package notify delivers deployment lifecycle notifications to external
// channels. Notifiers subscribe to the event bus and forward a subset of
// events; delivery failures are logged, never propagated into the saga.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"confship/internal/event"
)

// Notifier sends one notification about a deployment event.
type Notifier interface {
	Notify(ctx context.Context, e event.Event) error
}

// notifyTimeout bounds one outbound delivery.
const notifyTimeout = 10 * time.Second

// interesting reports whether an event warrants an outbound notification.
// Step-by-step chatter stays on the bus; only lifecycle outcomes and health
// degradations go out.
func interesting(t event.Type) bool {
	switch t {
	case event.DeploymentCompleted, event.DeploymentFailed, event.DeploymentCancelled, event.HealthDegradation:
		return true
	}
	return false
}

// Sink adapts notifiers to the event bus. Deliveries run on their own
// goroutine so a slow channel never stalls event publishing.
func Sink(logger *slog.Logger, notifiers ...Notifier) event.Subscriber {
	return event.SubscriberFunc(func(e event.Event) {
		if !interesting(e.Type) {
			return
		}
		for _, n := range notifiers {
			go func(n Notifier) {
				ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
				defer cancel()
				if err := n.Notify(ctx, e); err != nil {
					logger.Warn("notification delivery failed",
						"event", string(e.Type),
						"deployment_id", e.DeploymentID,
						"error", err)
				}
			}(n)
		}
	})
}

// Message renders a human-readable summary of a deployment event.
func Message(e event.Event) string {
	switch e.Type {
	case event.DeploymentCompleted:
		return fmt.Sprintf("Deployment %s completed", e.DeploymentID)
	case event.DeploymentFailed:
		msg := fmt.Sprintf("Deployment %s failed", e.DeploymentID)
		if detail, ok := e.Payload["error"].(string); ok && detail != "" {
			msg += ": " + detail
		}
		if rolledBack, ok := e.Payload["rolledBack"].(bool); ok && rolledBack {
			msg += " (rolled back)"
		}
		return msg
	case event.DeploymentCancelled:
		return fmt.Sprintf("Deployment %s cancelled", e.DeploymentID)
	case event.HealthDegradation:
		check, _ := e.Payload["check"].(string)
		return fmt.Sprintf("Deployment %s degraded health check %q", e.DeploymentID, check)
	default:
		return fmt.Sprintf("Deployment %s: %s", e.DeploymentID, e.Type)
	}
}
