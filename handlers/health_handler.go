package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bscm/assistant-backend/utils"
	"go.uber.org/zap"
)

// HealthChecker verifies a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	db     HealthChecker
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// HandleHealthz handles GET /healthz
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadyz handles GET /readyz, checking the database connection
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := "ready"

	if h.db == nil {
		status = "not_ready"
		checks["database"] = "not_initialized"
	} else if err := h.db.HealthCheck(ctx); err != nil {
		status = "not_ready"
		checks["database"] = "unhealthy"
		h.logger.Error("database health check failed", zap.Error(err))
	} else {
		checks["database"] = "healthy"
	}

	response := map[string]interface{}{
		"status": status,
		"checks": checks,
	}

	code := http.StatusOK
	if status != "ready" {
		code = http.StatusServiceUnavailable
	}
	_ = utils.WriteJSON(w, code, response)
}
