package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/services"
	"github.com/taoyanli0808/husky/internal/utils"
)

type PointHandler struct {
	log       *logger.Logger
	pointRepo repos.PointRepo
	analysis  services.AnalysisService
}

func NewPointHandler(log *logger.Logger, pointRepo repos.PointRepo, analysis services.AnalysisService) *PointHandler {
	return &PointHandler{
		log:       log.With("handler", "PointHandler"),
		pointRepo: pointRepo,
		analysis:  analysis,
	}
}

type pointAnalysisRequest struct {
	RequireID string `json:"require_id" binding:"required"`
}

// POST /api/v1/point/analysis
func (h *PointHandler) Analysis(c *gin.Context) {
	var req pointAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "require_id is required", nil)
		return
	}

	taskID := utils.NewHuskyID("TASK")
	task, err := h.analysis.EnqueuePointAnalysis(c.Request.Context(), taskID, req.RequireID)
	if err != nil {
		h.log.Error("Point analysis enqueue failed", "require_id", req.RequireID, "error", err)
		RespondError(c, http.StatusInternalServerError, "Failed to create task: "+err.Error(), nil)
		return
	}

	RespondOK(c, "Analysis started", gin.H{
		"task_id":  task.TaskID,
		"status":   task.Status,
		"progress": task.Progress,
	})
}

type pointSearchRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// POST /api/v1/point/search
func (h *PointHandler) Search(c *gin.Context) {
	var req pointSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "task_id is required", nil)
		return
	}

	points, err := h.pointRepo.GetByTaskID(c.Request.Context(), nil, req.TaskID)
	if err != nil {
		h.log.Error("Point search failed", "task_id", req.TaskID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	RespondOK(c, "Success", ListData{Total: int64(len(points)), List: points})
}

type pointUpdateRequest struct {
	PointID        string `json:"point_id" binding:"required"`
	Module         string `json:"module" binding:"required"`
	FunctionName   string `json:"function_name" binding:"required"`
	Description    string `json:"description" binding:"required"`
	TestType       string `json:"test_type" binding:"required"`
	BusinessDomain string `json:"business_domain" binding:"required"`
	Chunks         string `json:"chunks" binding:"required"`
	Preconditions  any    `json:"preconditions" binding:"required"`
}

// POST /api/v1/point/update
func (h *PointHandler) Update(c *gin.Context) {
	var req pointUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "missing required parameter: "+err.Error(), nil)
		return
	}

	rows, err := h.pointRepo.UpdateFields(c.Request.Context(), nil, req.PointID, map[string]interface{}{
		"module":          req.Module,
		"function_name":   req.FunctionName,
		"description":     req.Description,
		"test_type":       req.TestType,
		"business_domain": req.BusinessDomain,
		"chunks":          req.Chunks,
		"preconditions":   services.MustJSON(services.ToStringList(req.Preconditions)),
	})
	if err != nil {
		h.log.Error("Point update failed", "point_id", req.PointID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if rows == 0 {
		RespondError(c, http.StatusNotFound, "functional point not found", nil)
		return
	}
	RespondOK(c, "point updated", gin.H{"updated_rows": rows})
}

type pointDeleteRequest struct {
	PointID string `json:"point_id" binding:"required"`
}

// POST /api/v1/point/delete
func (h *PointHandler) Delete(c *gin.Context) {
	var req pointDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "point_id is required", nil)
		return
	}

	rows, err := h.pointRepo.Delete(c.Request.Context(), nil, req.PointID)
	if err != nil {
		h.log.Error("Point delete failed", "point_id", req.PointID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if rows == 0 {
		RespondError(c, http.StatusNotFound, "functional point not found", nil)
		return
	}
	RespondOK(c, "point deleted", gin.H{"deleted_rows": rows})
}
