package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"confship/internal/event"
)

func TestWebhookNotifier_DeliversEventJSON(t *testing.T) {
	var (
		mu   sync.Mutex
		body []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = data
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhook(srv.URL)
	err := n.Notify(context.Background(), event.Event{
		Type:         event.DeploymentFailed,
		DeploymentID: "dep-1",
		Payload:      map[string]any{"error": "deploy failed: share unreachable", "rolledBack": true},
	})
	if err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["deployment_id"] != "dep-1" {
		t.Errorf("deployment_id = %v", payload["deployment_id"])
	}
	msg, _ := payload["message"].(string)
	if !strings.Contains(msg, "failed") || !strings.Contains(msg, "rolled back") {
		t.Errorf("message = %q", msg)
	}
}

func TestWebhookNotifier_ServerErrorAfterRetries(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhook(srv.URL)
	n.client.RetryWaitMin = time.Millisecond
	n.client.RetryWaitMax = time.Millisecond

	err := n.Notify(context.Background(), event.Event{Type: event.DeploymentCompleted, DeploymentID: "dep-2"})
	if err == nil {
		t.Fatal("expected delivery error")
	}
	mu.Lock()
	defer mu.Unlock()
	if calls < 2 {
		t.Errorf("calls = %d, expected retries before giving up", calls)
	}
}

func TestSink_FiltersAndDelivers(t *testing.T) {
	delivered := make(chan event.Event, 10)
	n := notifierFunc(func(_ context.Context, e event.Event) error {
		delivered <- e
		return nil
	})
	sink := Sink(slog.Default(), n)

	sink.HandleEvent(event.Event{Type: event.DeploymentStep, DeploymentID: "dep-3"})
	sink.HandleEvent(event.Event{Type: event.DeploymentCompleted, DeploymentID: "dep-3"})

	select {
	case e := <-delivered:
		if e.Type != event.DeploymentCompleted {
			t.Errorf("delivered %s, expected completed", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	select {
	case e := <-delivered:
		t.Errorf("unexpected extra delivery: %v", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

type notifierFunc func(ctx context.Context, e event.Event) error

func (f notifierFunc) Notify(ctx context.Context, e event.Event) error { return f(ctx, e) }

func TestMessage(t *testing.T) {
	tests := []struct {
		e    event.Event
		want string
	}{
		{event.Event{Type: event.DeploymentCompleted, DeploymentID: "d1"}, "Deployment d1 completed"},
		{event.Event{Type: event.DeploymentCancelled, DeploymentID: "d2"}, "Deployment d2 cancelled"},
		{
			event.Event{Type: event.HealthDegradation, DeploymentID: "d3", Payload: map[string]any{"check": "api"}},
			`Deployment d3 degraded health check "api"`,
		},
	}
	for _, tt := range tests {
		if got := Message(tt.e); got != tt.want {
			t.Errorf("Message(%s) = %q, expected %q", tt.e.Type, got, tt.want)
		}
	}
}
