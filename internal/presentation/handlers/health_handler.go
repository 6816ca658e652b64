package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// HealthChecker defines the interface for health checking components
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency is a component probed by the health endpoints. A failing
// critical dependency makes the service unhealthy, any other one only
// degrades it.
type Dependency struct {
	Name     string
	Checker  HealthChecker
	Critical bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	deps []Dependency
}

// NewHealthHandler creates a new health handler. Dependencies with a nil
// checker are skipped, so optional components can be passed as they are.
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	h := &HealthHandler{}
	for _, d := range deps {
		if d.Checker != nil {
			h.deps = append(h.deps, d)
		}
	}
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Networks  []string          `json:"networks"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string, len(h.deps)),
		Networks:  entities.SupportedNetworks(),
	}

	critical, degraded := false, false
	for _, d := range h.deps {
		if err := d.Checker.HealthCheck(ctx); err != nil {
			response.Services[d.Name] = "unhealthy: " + err.Error()
			if d.Critical {
				critical = true
			} else {
				degraded = true
			}
			continue
		}
		response.Services[d.Name] = "healthy"
	}

	status := http.StatusOK
	switch {
	case critical:
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case degraded:
		response.Status = "degraded"
	}

	respondJSON(w, status, response)
}

// Ready handles GET /ready (Kubernetes readiness probe). Only critical
// dependencies gate readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, d := range h.deps {
		if !d.Critical {
			continue
		}
		if err := d.Checker.HealthCheck(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Live handles GET /live (Kubernetes liveness probe)
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
