package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/clawminium/agentkernel/internal/models"
)

// HealthChecker is implemented by dependencies that can report connectivity
type HealthChecker interface {
	TestConnection(ctx context.Context) error
}

// Counter reports a size; the tool registry and policy engine satisfy it.
type Counter interface {
	Len() int
}

// HealthHandler handles GET /health with optional dependency checks
type HealthHandler struct {
	version  string
	tools    Counter
	policies Counter
	sessions func() int64
	checks   map[string]HealthChecker
}

func NewHealthHandler(version string, tools, policies Counter, sessions func() int64, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		tools:    tools,
		policies: policies,
		sessions: sessions,
		checks:   checks,
	}
}

// Health handles GET /health. A failing dependency degrades the kernel and
// answers 503; the tool path still works without it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	// Use a short timeout for health checks so they don't block
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, c := range h.checks {
		if c == nil {
			checks[name] = "disabled"
			continue
		}
		if err := c.TestConnection(ctx); err != nil {
			checks[name] = "unavailable: " + err.Error()
			overallStatus = "degraded"
		} else {
			checks[name] = "ok"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	resp := models.HealthResponse{
		Status:   overallStatus,
		Version:  h.version,
		Tools:    h.tools.Len(),
		Policies: h.policies.Len(),
		Checks:   checks,
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions()
	}
	models.WriteJSON(w, statusCode, resp)
}
