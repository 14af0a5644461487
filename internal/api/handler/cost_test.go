package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
)

func setupCostRouter(t *testing.T) (*gin.Engine, *repository.CostRepository) {
	t.Helper()

	db := setupDB(t)
	repo := repository.NewCostRepository(db)
	h := NewCostHandler(repo)

	router := gin.New()
	router.Use(mockAuth("ranch-hand"))
	router.GET("/costs/daily", h.Daily)
	router.GET("/costs/summary", h.Summary)
	return router, repo
}

func TestCostHandlerDaily(t *testing.T) {
	router, repo := setupCostRouter(t)

	now := time.Now().UTC()
	require.NoError(t, repo.Increment(now, "openai", "gpt-4o-mini", 1500, 0.0008))

	resp := serve(t, router, http.MethodGet, "/costs/daily", "")
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	records := data["records"].([]interface{})
	require.Len(t, records, 1)

	resp = serve(t, router, http.MethodGet, "/costs/daily?date=2020-01-01", "")
	data = resp.Data.(map[string]interface{})
	assert.Empty(t, data["records"])

	resp = serve(t, router, http.MethodGet, "/costs/daily?date=January", "")
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestCostHandlerSummary(t *testing.T) {
	router, repo := setupCostRouter(t)

	now := time.Now().UTC()
	require.NoError(t, repo.Increment(now, "openai", "gpt-4o-mini", 1000, 0.0005))
	require.NoError(t, repo.Increment(now.AddDate(0, 0, -2), "gemini", "gemini-1.5-flash", 500, 0.0002))
	// Outside the 30-day window.
	require.NoError(t, repo.Increment(now.AddDate(0, 0, -60), "openai", "gpt-4o", 9000, 5.0))

	resp := serve(t, router, http.MethodGet, "/costs/summary?days=30", "")
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	models := data["models"].([]interface{})
	assert.Len(t, models, 2)
	assert.InDelta(t, 0.0007, data["total_cost"].(float64), 1e-9)

	resp = serve(t, router, http.MethodGet, "/costs/summary?days=-1", "")
	assert.Equal(t, response.CodeParamError, resp.Code)
}
