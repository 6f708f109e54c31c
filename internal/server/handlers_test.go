package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"confship/internal/gateway"
	"confship/internal/history"
	"confship/internal/metrics"
	"confship/internal/saga"
)

// stubGateway answers every saga operation successfully.
type stubGateway struct{}

func (stubGateway) CreateBackup(context.Context, string, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (stubGateway) RestoreBackup(context.Context, string, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (stubGateway) TransferFile(context.Context, string, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (stubGateway) ListDirectory(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"entries": []any{map[string]any{"name": "configuration.yaml"}}}, nil
}

func (stubGateway) ValidateConfiguration(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"valid": true}, nil
}

func (stubGateway) DeleteBackup(context.Context, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (stubGateway) CloneRepository(context.Context, string, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (stubGateway) GetFileContent(context.Context, string, string, string) (map[string]any, error) {
	return map[string]any{"content": "automation: []\n"}, nil
}

func (stubGateway) GetCommitInfo(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"sha": "abc1234"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	hist, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	engine := saga.NewEngine(stubGateway{}, saga.Options{
		Logger:      slog.Default(),
		ScratchRoot: t.TempDir(),
		Recorder:    hist,
	})

	return NewServer(engine, gateway.New(slog.Default()), hist, metrics.New(), slog.Default(), true)
}

const deploymentBody = `{
	"source": {
		"type": "source-control",
		"repository": "me/ha-config",
		"branch": "main",
		"files": ["configuration.yaml"]
	},
	"target": {
		"type": "file",
		"shareName": "homeassistant",
		"path": "/config"
	}
}`

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestCreateDeployment_AcceptedAndCompletes(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", deploymentBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, expected 202: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("response missing id: %v", body)
	}
	if body["status"] != string(saga.StatusInitializing) {
		t.Errorf("status = %v, expected initializing", body["status"])
	}

	s.WaitForDeployments()

	rec = doRequest(t, s, http.MethodGet, "/deployments/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	final := decodeBody(t, rec)
	if final["status"] != string(saga.StatusCompleted) {
		t.Errorf("deployment status = %v, expected completed", final["status"])
	}
	steps, _ := final["steps"].([]any)
	if len(steps) == 0 {
		t.Error("deployment should expose its step log")
	}
}

func TestCreateDeployment_InvalidConfig(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", `{"source":{"type":"source-control"},"target":{"type":"file"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	problems, _ := body["problems"].([]any)
	if len(problems) == 0 {
		t.Errorf("expected validation problems, got %v", body)
	}
}

func TestCreateDeployment_MalformedJSON(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", rec.Code)
	}
}

func TestGetDeployment_Unknown(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/deployments/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", rec.Code)
	}
}

func TestCancelDeployment(t *testing.T) {
	s := newTestServer(t)

	prepared, err := s.Engine.Prepare(saga.Config{
		Source: saga.Source{Type: saga.SourceTypeSourceControl, Repository: "me/ha-config", Branch: "main"},
		Target: saga.Target{Type: saga.TargetTypeFile, ShareName: "homeassistant", Path: "/config"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, s, http.MethodPost, "/deployments/"+prepared.ID+"/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["status"] != string(saga.StatusCancelled) {
		t.Error("cancel response should report cancelled status")
	}

	rec = doRequest(t, s, http.MethodPost, "/deployments/"+prepared.ID+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, expected 409", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/deployments/unknown/cancel", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown cancel status = %d, expected 404", rec.Code)
	}
}

func TestListDeployments(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", deploymentBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	s.WaitForDeployments()

	rec = doRequest(t, s, http.MethodGet, "/deployments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	deployments, _ := body["deployments"].([]any)
	if len(deployments) != 1 {
		t.Errorf("deployments = %v, expected one entry", body)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", deploymentBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	s.WaitForDeployments()

	rec = doRequest(t, s, http.MethodGet, "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	records, _ := body["deployments"].([]any)
	if len(records) != 1 {
		t.Errorf("history = %v, expected one record", body)
	}

	rec = doRequest(t, s, http.MethodGet, "/history?limit=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, expected 400", rec.Code)
	}
}

func TestHistoryEndpoint_TargetScoped(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", deploymentBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	s.WaitForDeployments()

	target := url.QueryEscape("file:homeassistant:/config")
	rec = doRequest(t, s, http.MethodGet, "/history?target="+target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	records, _ := decodeBody(t, rec)["deployments"].([]any)
	if len(records) != 1 {
		t.Errorf("target history = %v, expected one record", records)
	}

	rec = doRequest(t, s, http.MethodGet, "/history?target="+url.QueryEscape("file:other:/config"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if records, _ := decodeBody(t, rec)["deployments"].([]any); len(records) != 0 {
		t.Errorf("foreign target history = %v, expected empty", records)
	}
}

func TestLatestDeploymentEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/deployments", deploymentBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	s.WaitForDeployments()

	target := url.QueryEscape("file:homeassistant:/config")
	rec = doRequest(t, s, http.MethodGet, "/history/latest?target="+target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != string(saga.StatusCompleted) {
		t.Errorf("latest status = %v, expected completed", body["status"])
	}
	if id, _ := body["deployment_id"].(string); id == "" {
		t.Errorf("latest record = %v, missing deployment_id", body)
	}

	rec = doRequest(t, s, http.MethodGet, "/history/latest", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing target status = %d, expected 400", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/history/latest?target="+url.QueryEscape("file:other:/config"), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown target status = %d, expected 404", rec.Code)
	}
}

func TestShutdown_DrainsHTTPServer(t *testing.T) {
	s := newTestServer(t)

	startErr := make(chan error, 1)
	go func() {
		startErr <- s.Start("127.0.0.1:0")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		started := s.httpServer != nil
		s.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	if err := <-startErr; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Start returned %v, expected ErrServerClosed after Shutdown", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
	if _, ok := body["subsystems"]; !ok {
		t.Error("health response should include subsystem status")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "confship_") {
		t.Error("metrics output should contain confship collectors")
	}
}
