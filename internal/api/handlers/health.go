package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/satwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/utils"
	"github.com/pratik-mahalle/satwatch/internal/state"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store  *state.Store
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *state.Store, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: log,
	}
}

// Healthz handles liveness probe
// @Summary Liveness probe
// @Description Check if the daemon is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Daemon is alive"
// @Router /healthz [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles readiness probe
// @Summary Readiness probe
// @Description Ready when the telemetry backend answered the last health probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Backend reachable"
// @Failure 503 {object} utils.ErrorResponse "Backend unreachable"
// @Router /readyz [get]
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.store.Connected() {
		_ = utils.WriteError(w, errors.UpstreamUnavailable("Telemetry backend unreachable"))
		return
	}

	_ = utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"backend": "connected",
	})
}
