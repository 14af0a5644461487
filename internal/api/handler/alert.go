package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/api/middleware"
	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
)

type AlertHandler struct {
	alerts *repository.AlertRepository
}

func NewAlertHandler(alerts *repository.AlertRepository) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List returns alerts, newest first.
// GET /api/v1/alerts?camera=&severity=&acknowledged=&page=1&page_size=20
func (h *AlertHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)

	var acknowledged *bool
	if v := c.Query("acknowledged"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			response.ParamError(c, "invalid acknowledged filter")
			return
		}
		acknowledged = &parsed
	}

	alerts, total, err := h.alerts.List(c.Query("camera"), c.Query("severity"), acknowledged, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, alerts)
}

// Acknowledge marks an alert as handled by the calling operator.
// POST /api/v1/alerts/:id/ack
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid alert id")
		return
	}

	operator, ok := middleware.GetOperator(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	err = h.alerts.Acknowledge(id, operator, time.Now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFoundError(c, "alert not found")
		return
	}
	if err != nil {
		response.ServerError(c, "")
		return
	}

	alert, err := h.alerts.GetByID(id)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, alert)
}

// UnacknowledgedCount feeds the dashboard badge.
// GET /api/v1/alerts/unacknowledged-count
func (h *AlertHandler) UnacknowledgedCount(c *gin.Context) {
	count, err := h.alerts.CountUnacknowledged()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"count": count})
}
