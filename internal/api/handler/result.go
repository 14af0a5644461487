package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
)

type ResultHandler struct {
	results *repository.ResultRepository
}

func NewResultHandler(results *repository.ResultRepository) *ResultHandler {
	return &ResultHandler{results: results}
}

// List returns result history, newest first.
// GET /api/v1/results?image_id=&camera=&analysis_type=&page=1&page_size=20
func (h *ResultHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)

	results, total, err := h.results.List(
		c.Query("image_id"),
		c.Query("camera"),
		c.Query("analysis_type"),
		page, pageSize,
	)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, results)
}

// Get returns one result row.
// GET /api/v1/results/:id
func (h *ResultHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid result id")
		return
	}

	result, err := h.results.GetByID(id)
	if err != nil {
		response.NotFoundError(c, "result not found")
		return
	}

	response.Success(c, result)
}

// Session returns every member of a multi-model comparison run, in
// invocation order, so the dashboard can show the disagreement trail.
// GET /api/v1/results/session/:session_id
func (h *ResultHandler) Session(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.ParamError(c, "missing session id")
		return
	}

	results, err := h.results.ListBySession(sessionID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	if len(results) == 0 {
		response.NotFoundError(c, "session not found")
		return
	}

	response.Success(c, results)
}
