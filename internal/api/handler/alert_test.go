package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
)

func setupAlertRouter(t *testing.T) (*gin.Engine, *repository.AlertRepository, *gorm.DB) {
	t.Helper()

	db := setupDB(t)
	repo := repository.NewAlertRepository(db)
	h := NewAlertHandler(repo)

	router := gin.New()
	router.Use(mockAuth("ranch-hand"))
	router.GET("/alerts", h.List)
	router.GET("/alerts/unacknowledged-count", h.UnacknowledgedCount)
	router.POST("/alerts/:id/ack", h.Acknowledge)
	return router, repo, db
}

func seedAlert(t *testing.T, repo *repository.AlertRepository, camera, severity string) *model.Alert {
	t.Helper()
	alert := &model.Alert{
		AlertType:  model.AnalysisTypeGateDetection,
		CameraName: camera,
		Severity:   severity,
		Title:      "Gate Open Alert - " + camera,
		Message:    "Gate detected open",
	}
	require.NoError(t, repo.Create(alert))
	return alert
}

func TestAlertHandlerList(t *testing.T) {
	router, repo, _ := setupAlertRouter(t)

	seedAlert(t, repo, "North Gate", model.AlertSeverityCritical)
	seedAlert(t, repo, "South Pasture", model.AlertSeverityWarning)

	resp := serve(t, router, http.MethodGet, "/alerts", "")
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])

	resp = serve(t, router, http.MethodGet, "/alerts?severity=critical", "")
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])

	resp = serve(t, router, http.MethodGet, "/alerts?acknowledged=nope", "")
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAlertHandlerAcknowledge(t *testing.T) {
	router, repo, _ := setupAlertRouter(t)

	alert := seedAlert(t, repo, "North Gate", model.AlertSeverityCritical)

	resp := serve(t, router, http.MethodPost, fmt.Sprintf("/alerts/%d/ack", alert.ID), "")
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["acknowledged"])
	assert.Equal(t, "ranch-hand", data["acknowledged_by"])

	resp = serve(t, router, http.MethodPost, "/alerts/9999/ack", "")
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestAlertHandlerUnacknowledgedCount(t *testing.T) {
	router, repo, _ := setupAlertRouter(t)

	seedAlert(t, repo, "North Gate", model.AlertSeverityCritical)
	acked := seedAlert(t, repo, "South Pasture", model.AlertSeverityWarning)
	serve(t, router, http.MethodPost, fmt.Sprintf("/alerts/%d/ack", acked.ID), "")

	resp := serve(t, router, http.MethodGet, "/alerts/unacknowledged-count", "")
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}
