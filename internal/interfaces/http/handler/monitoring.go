package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YKLee98/naver-sub003/internal/application/monitoring"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// AlertService is the monitor surface exposed over HTTP
type AlertService interface {
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]alert.Alert, error)
	ResolveAlert(ctx context.Context, id, by string) (bool, error)
	Metrics(ctx context.Context) (*monitoring.FleetMetrics, error)
}

// MonitoringHandler handles alert and fleet metric endpoints
type MonitoringHandler struct {
	BaseHandler
	monitor AlertService
}

// NewMonitoringHandler creates a new MonitoringHandler
func NewMonitoringHandler(monitor AlertService) *MonitoringHandler {
	return &MonitoringHandler{monitor: monitor}
}

// RegisterRoutes mounts /alerts and /monitoring
func (h *MonitoringHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alerts", h.ListAlerts)
	rg.POST("/alerts/:id/resolve", h.ResolveAlert)
	rg.GET("/monitoring/metrics", h.Metrics)
}

// ListAlerts godoc
// @Summary      List visible alerts
// @Description  Resolved alerts stay listed until their grace period ends.
// @Tags         monitoring
// @Produce      json
// @Param        unresolved_only  query     bool  false  "Only unresolved"
// @Success      200              {object}  dto.Response{data=[]dto.AlertResponse}
// @Router       /alerts [get]
func (h *MonitoringHandler) ListAlerts(c *gin.Context) {
	var req dto.ListAlertsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	alerts, err := h.monitor.ListAlerts(c.Request.Context(), req.UnresolvedOnly)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, dto.NewAlertResponse(&alerts[i]))
	}
	h.Success(c, out)
}

// ResolveAlert godoc
// @Summary      Resolve an alert
// @Tags         monitoring
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true   "Alert ID"
// @Param        request  body      dto.ResolveAlertRequest  false  "Resolver"
// @Success      200      {object}  dto.Response
// @Failure      404      {object}  dto.Response
// @Router       /alerts/{id}/resolve [post]
func (h *MonitoringHandler) ResolveAlert(c *gin.Context) {
	var req dto.ResolveAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	ok, err := h.monitor.ResolveAlert(c.Request.Context(), c.Param("id"), req.ResolvedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !ok {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "alert not found or already resolved")
		return
	}
	h.Success(c, gin.H{"resolved": true})
}

// Metrics godoc
// @Summary      Fleet sync metrics
// @Description  Served from a short-lived cache refreshed by the sampling loop.
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  dto.Response{data=dto.FleetMetricsResponse}
// @Router       /monitoring/metrics [get]
func (h *MonitoringHandler) Metrics(c *gin.Context) {
	m, err := h.monitor.Metrics(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, m)
}
