package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/phishlens/internal/health"
)

// HealthHandler serves the liveness/readiness endpoint.
type HealthHandler struct {
	checker *health.Checker // nil = always ok
	version string
}

// NewHealthHandler creates a HealthHandler. checker may be nil.
func NewHealthHandler(checker *health.Checker, version string) *HealthHandler {
	return &HealthHandler{checker: checker, version: version}
}

// Healthz handles GET /healthz. It answers 503 when a required dependency
// is degraded.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.checker == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
		return
	}

	status, code := "ok", http.StatusOK
	if !h.checker.Ready() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"version":      h.version,
		"dependencies": h.checker.Snapshot(),
	})
}
