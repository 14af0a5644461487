package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/repository"
)

type TaskHandler struct {
	tasks *repository.TaskRepository
}

func NewTaskHandler(tasks *repository.TaskRepository) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List returns queued tasks, optionally filtered by status.
// GET /api/v1/tasks?status=pending&page=1&page_size=20
func (h *TaskHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)
	status := model.TaskStatus(c.Query("status"))

	switch status {
	case "", model.TaskStatusPending, model.TaskStatusProcessing,
		model.TaskStatusCompleted, model.TaskStatusFailed:
	default:
		response.ParamError(c, "unknown status: "+string(status))
		return
	}

	tasks, total, err := h.tasks.List(status, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, tasks)
}

// Get returns one task.
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid task id")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		response.NotFoundError(c, "task not found")
		return
	}

	response.Success(c, task)
}

// Stats returns queue depth and age for the dashboard.
// GET /api/v1/tasks/stats
func (h *TaskHandler) Stats(c *gin.Context) {
	stats, err := h.tasks.Stats()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, stats)
}

// pagination reads and clamps the shared paging query params.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
