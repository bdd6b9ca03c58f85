package api

import (
	"net/http"
	"time"

	respond "github.com/sundaylabs/sunday-server/internal/api/respond"
)

// HealthHandler serves the service health endpoint.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// serviceIsHealthy is injected at wiring time; until then the service
// reports unhealthy.
var serviceIsHealthy func() bool = func() bool { return false }

// BindServiceHealth injects the aggregated health function.
func BindServiceHealth(f func() bool) { serviceIsHealthy = f }

// CheckHealth handles GET /api/health.
// Always returns 200; the body reports healthy/unhealthy.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if serviceIsHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
