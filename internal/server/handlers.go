package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"confship/internal/history"
	"confship/internal/saga"
)

const (
	MaxPayloadBytes        = 1_000_000 // 1 MB
	RecentDeploymentsLimit = 10
)

// HandleCreateDeployment accepts a deployment request and runs the saga
// asynchronously. The response is 202 with the assigned deployment ID;
// clients poll GET /deployments/{id} for progress.
func (s *Server) HandleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Error("Failed to read request body", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return
	}

	var cfg saga.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
		return
	}

	prepared, err := s.Engine.Prepare(cfg)
	if err != nil {
		var validationErr *saga.ConfigValidationError
		if errors.As(err, &validationErr) {
			s.respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":    "Invalid deployment configuration",
				"problems": validationErr.Problems,
			})
			return
		}
		s.Logger.Error("Failed to prepare deployment", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to prepare deployment"})
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     prepared.ID,
		"status": string(prepared.Status),
	})

	s.deployWg.Add(1)
	go func() {
		defer s.deployWg.Done()
		// The request context dies with this handler; the saga runs on its own.
		if err := s.Engine.Execute(context.Background(), prepared.ID); err != nil {
			s.Logger.Error("deployment failed", "deployment_id", prepared.ID, "error", err)
		}
	}()
}

// HandleGetDeployment returns the live snapshot of one deployment.
func (s *Server) HandleGetDeployment(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	d, err := s.Engine.Get(deploymentID)
	if err == nil {
		s.respondJSON(w, http.StatusOK, d)
		return
	}
	if !errors.Is(err, saga.ErrDeploymentNotFound) {
		s.Logger.Error("Failed to get deployment", "deployment_id", deploymentID, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch deployment"})
		return
	}

	// Not in the live registry; it may predate the current process.
	if s.History != nil {
		record, err := s.History.Get(r.Context(), deploymentID)
		if err != nil {
			s.Logger.Error("Failed to query history", "deployment_id", deploymentID, "error", err)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch deployment"})
			return
		}
		if record != nil {
			s.respondJSON(w, http.StatusOK, record)
			return
		}
	}

	s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown deployment"})
}

// HandleListDeployments returns every deployment known to this process,
// newest first.
func (s *Server) HandleListDeployments(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"deployments": s.Engine.List(),
	})
}

// HandleCancelDeployment cancels a non-terminal deployment.
func (s *Server) HandleCancelDeployment(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	err := s.Engine.Cancel(deploymentID)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, map[string]string{
			"id":     deploymentID,
			"status": string(saga.StatusCancelled),
		})
	case errors.Is(err, saga.ErrDeploymentNotFound):
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown deployment"})
	case errors.Is(err, saga.ErrDeploymentTerminal):
		s.respondJSON(w, http.StatusConflict, map[string]string{"error": "Deployment already finished"})
	default:
		s.Logger.Error("Failed to cancel deployment", "deployment_id", deploymentID, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to cancel deployment"})
	}
}

// HandleHistory returns recent terminal deployments from the audit trail.
// With ?target=<type:share:path> the results are scoped to one target.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History not available"})
		return
	}

	limit := RecentDeploymentsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	var records []history.Record
	var err error
	if target := r.URL.Query().Get("target"); target != "" {
		records, err = s.History.ForTarget(r.Context(), target, limit)
	} else {
		records, err = s.History.Recent(r.Context(), limit)
	}
	if err != nil {
		s.Logger.Error("Failed to query history", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch history"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"deployments": records})
}

// HandleLatestDeployment returns the most recent terminal deployment of one
// target, identified by its target key.
func (s *Server) HandleLatestDeployment(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History not available"})
		return
	}

	target := r.URL.Query().Get("target")
	if target == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing target"})
		return
	}

	record, err := s.History.LatestForTarget(r.Context(), target)
	if err != nil {
		s.Logger.Error("Failed to query history", "target", target, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch history"})
		return
	}
	if record == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Target never deployed"})
		return
	}

	s.respondJSON(w, http.StatusOK, record)
}

// HandleHealth reports daemon liveness and per-subsystem connection health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
	}
	if s.Gateway != nil {
		response["subsystems"] = s.Gateway.Health()
	}
	s.respondJSON(w, http.StatusOK, response)
}

// HandleMetrics serves the Prometheus scrape endpoint.
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	s.Metrics.Handler().ServeHTTP(w, r)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
