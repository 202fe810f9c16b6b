package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/services"
)

type TaskHandler struct {
	log      *logger.Logger
	taskRepo repos.TaskRepo
	analysis services.AnalysisService
}

func NewTaskHandler(log *logger.Logger, taskRepo repos.TaskRepo, analysis services.AnalysisService) *TaskHandler {
	return &TaskHandler{
		log:      log.With("handler", "TaskHandler"),
		taskRepo: taskRepo,
		analysis: analysis,
	}
}

// GET /api/v1/task/search?page=1&size=10&sort=created_at&order=desc
func (h *TaskHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	sort := c.DefaultQuery("sort", "created_at")
	order := c.DefaultQuery("order", "desc")

	tasks, total, err := h.taskRepo.List(c.Request.Context(), nil, page, size, sort, order)
	if err != nil {
		h.log.Error("Task search failed", "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	RespondOK(c, "Success", ListData{Total: total, List: tasks})
}

// GET /api/v1/task/status?task_id=TASK-...
func (h *TaskHandler) Status(c *gin.Context) {
	taskID := c.Query("task_id")
	if taskID == "" {
		RespondError(c, http.StatusBadRequest, "task_id is required", nil)
		return
	}

	task, err := h.analysis.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		h.log.Error("Task status lookup failed", "task_id", taskID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if task == nil {
		RespondError(c, http.StatusNotFound, "task not found", nil)
		return
	}
	RespondOK(c, "Success", task)
}

type taskCancelRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// POST /api/v1/task/cancel
func (h *TaskHandler) Cancel(c *gin.Context) {
	var req taskCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "task_id is required", nil)
		return
	}

	if err := h.analysis.Cancel(c.Request.Context(), req.TaskID); err != nil {
		h.log.Warn("Task cancel failed", "task_id", req.TaskID, "error", err)
		RespondError(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	RespondOK(c, "Task cancelled successfully", nil)
}
