package event

import (
	"log/slog"
	"sync"
	"time"
)

// Subscriber receives deployment events. Handlers must not block; slow
// consumers should hand off to their own goroutine or channel.
type Subscriber interface {
	HandleEvent(Event)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(Event)

// HandleEvent implements Subscriber.
func (f SubscriberFunc) HandleEvent(e Event) {
	f(e)
}

// Bus fans events out to registered subscribers. The saga engine and the
// gateway publish here without knowing who is listening.
type Bus struct {
	mu     sync.RWMutex
	subs   []Subscriber
	logger *slog.Logger
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a subscriber for all future events.
func (b *Bus) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber. A panicking subscriber is
// logged and skipped so one bad consumer cannot take down a deployment.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked", "event", string(e.Type), "panic", r)
		}
	}()
	s.HandleEvent(e)
}

// LogSink returns a subscriber that writes every event to the logger.
func LogSink(logger *slog.Logger) Subscriber {
	return SubscriberFunc(func(e Event) {
		logger.Info("deployment event",
			"event", string(e.Type),
			"deployment_id", e.DeploymentID,
			"step", e.Step,
			"step_status", e.StepStatus)
	})
}
