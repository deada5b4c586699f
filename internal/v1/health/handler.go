// Package health implements liveness and readiness probe endpoints.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves the liveness and readiness probe endpoints. The relay
// keeps all state in memory and has no external dependency to probe, so
// readiness only reports on the in-process stores.
type Handler struct{}

// NewHandler creates a health check handler.
func NewHandler() *Handler {
	return &Handler{}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles GET /health/live. It always returns 200 while the
// process is up; it makes no dependency checks.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /health/ready. The relay's state lives entirely
// in process memory, so readiness reduces to "the process is up and its
// stores are initialized" — there is no external dependency to time out
// waiting on.
func (h *Handler) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, ReadinessResponse{
		Status:    "ready",
		Checks:    map[string]string{"stores": "healthy"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
