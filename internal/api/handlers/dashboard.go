package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/api/dto"
	"github.com/pratik-mahalle/satwatch/internal/api/middleware"
	"github.com/pratik-mahalle/satwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/utils"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
	"github.com/pratik-mahalle/satwatch/internal/worker"
)

// Scheduler is the part of the poller the API needs
type Scheduler interface {
	RefreshNow(ctx context.Context) error
	Jobs() []worker.JobInfo
}

// DashboardHandler serves views derived from the synchronised state
type DashboardHandler struct {
	store     *state.Store
	scheduler Scheduler
	logger    *logger.Logger
	now       func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(store *state.Store, scheduler Scheduler, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:     store,
		scheduler: scheduler,
		logger:    log,
		now:       time.Now,
	}
}

func (h *DashboardHandler) derive(w http.ResponseWriter, r *http.Request) (view.Dashboard, bool) {
	f, appErr := parseFilter(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return view.Dashboard{}, false
	}
	middleware.AddLogField(w, "satellite_id", f.SatelliteID)
	return view.Derive(h.store.Snapshot(), f, h.now()), true
}

// Dashboard returns the full derived dashboard
// @Summary Dashboard
// @Description Filtered anomalies, alerts, KPIs, server stats, chart series and history in one frame
// @Tags Dashboard
// @Produce json
// @Param satellite_id query string false "Satellite id or 'all'"
// @Param from query string false "Inclusive start date (YYYY-MM-DD)"
// @Param to query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} view.Dashboard
// @Failure 400 {object} utils.ErrorResponse "Invalid filter"
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.derive(w, r); ok {
		_ = utils.WriteSuccess(w, http.StatusOK, d)
	}
}

// Satellites returns every known satellite
// @Summary List satellites
// @Tags Dashboard
// @Produce json
// @Success 200 {object} []satellite.Satellite
// @Router /api/v1/satellites [get]
func (h *DashboardHandler) Satellites(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteSuccess(w, http.StatusOK, h.store.Snapshot().Satellites)
}

// Anomalies returns the filtered anomaly events
// @Summary List anomalies
// @Tags Dashboard
// @Produce json
// @Param satellite_id query string false "Satellite id or 'all'"
// @Param from query string false "Inclusive start date (YYYY-MM-DD)"
// @Param to query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} []anomaly.Event
// @Router /api/v1/anomalies [get]
func (h *DashboardHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.derive(w, r); ok {
		_ = utils.WriteSuccess(w, http.StatusOK, d.Anomalies)
	}
}

// Alerts returns the alert projection of the filtered events
// @Summary List alerts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} []alert.Alert
// @Router /api/v1/alerts [get]
func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.derive(w, r); ok {
		_ = utils.WriteSuccess(w, http.StatusOK, d.Alerts)
	}
}

// KPIs returns locally computed aggregates next to the server statistics
// @Summary KPIs
// @Tags Dashboard
// @Produce json
// @Router /api/v1/kpis [get]
func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.derive(w, r); ok {
		_ = utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
			"local":  d.KPIs,
			"server": d.ServerStats,
		})
	}
}

// Status reports connectivity, per-resource sync state and the schedule
// @Summary Sync status
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.StatusDTO
// @Router /api/v1/status [get]
func (h *DashboardHandler) Status(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteSuccess(w, http.StatusOK, dto.NewStatusDTO(h.store.Snapshot(), h.scheduler.Jobs()))
}

// Refresh triggers an immediate probe and reload of every resource
// @Summary Refresh now
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.RefreshResponse
// @Failure 429 {object} utils.ErrorResponse "Rate limited"
// @Failure 503 {object} utils.ErrorResponse "Backend unreachable"
// @Router /api/v1/refresh [post]
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.scheduler.RefreshNow(r.Context())
	if stderrors.Is(err, worker.ErrBackendUnavailable) {
		_ = utils.WriteError(w, errors.UpstreamUnavailable("Telemetry backend unreachable, showing last known data"))
		return
	}

	resp := dto.RefreshResponse{Status: dto.NewStatusDTO(h.store.Snapshot(), h.scheduler.Jobs())}
	if err != nil {
		h.logger.WithError(err).Warn("Manual refresh completed with errors")
		for _, e := range unwrapJoined(err) {
			resp.Errors = append(resp.Errors, e.Error())
		}
		_ = utils.WriteSuccessWithMessage(w, http.StatusOK, "Refresh completed with errors", resp)
		return
	}

	_ = utils.WriteSuccessWithMessage(w, http.StatusOK, "Refresh completed", resp)
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
