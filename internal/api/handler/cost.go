package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
)

type CostHandler struct {
	costs *repository.CostRepository
}

func NewCostHandler(costs *repository.CostRepository) *CostHandler {
	return &CostHandler{costs: costs}
}

// Daily returns the per-model rollup for one day (today by default).
// GET /api/v1/costs/daily?date=2026-08-27
func (h *CostHandler) Daily(c *gin.Context) {
	day := time.Now().UTC()
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse(model.CostDateLayout, v)
		if err != nil {
			response.ParamError(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	records, err := h.costs.GetDay(day)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{
		"date":    model.CostDay(day),
		"records": records,
	})
}

// Summary aggregates spend per model over a trailing window.
// GET /api/v1/costs/summary?days=30
func (h *CostHandler) Summary(c *gin.Context) {
	days := 30
	if v := c.Query("days"); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			response.ParamError(c, "days must be a positive integer")
			return
		}
		days = parsed
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -(days - 1))

	rows, err := h.costs.Summarize(from, now)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	total, err := h.costs.TotalSince(from)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{
		"from":       model.CostDay(from),
		"to":         model.CostDay(now),
		"total_cost": total,
		"models":     rows,
	})
}
