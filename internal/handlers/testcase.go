package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/services"
	"github.com/taoyanli0808/husky/internal/types"
	"github.com/taoyanli0808/husky/internal/utils"
)

type TestcaseHandler struct {
	log          *logger.Logger
	testcaseRepo repos.TestcaseRepo
	analysis     services.AnalysisService
}

func NewTestcaseHandler(log *logger.Logger, testcaseRepo repos.TestcaseRepo, analysis services.AnalysisService) *TestcaseHandler {
	return &TestcaseHandler{
		log:          log.With("handler", "TestcaseHandler"),
		testcaseRepo: testcaseRepo,
		analysis:     analysis,
	}
}

type testcaseAnalysisRequest struct {
	RequireID string   `json:"require_id" binding:"required"`
	PointIDs  []string `json:"point_ids" binding:"required,min=1"`
}

// POST /api/v1/testcase/analysis
func (h *TestcaseHandler) Analysis(c *gin.Context) {
	var req testcaseAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "require_id and point_ids are required", nil)
		return
	}

	taskID := utils.NewHuskyID("TASK")
	task, err := h.analysis.EnqueueTestcaseAnalysis(c.Request.Context(), taskID, req.RequireID, req.PointIDs)
	if err != nil {
		h.log.Error("Testcase analysis enqueue failed", "require_id", req.RequireID, "error", err)
		RespondError(c, http.StatusInternalServerError, "Failed to create task: "+err.Error(), nil)
		return
	}

	RespondOK(c, "Analysis started", gin.H{
		"task_id":  task.TaskID,
		"status":   task.Status,
		"progress": task.Progress,
	})
}

type testcaseSearchRequest struct {
	TaskID    string `json:"task_id"`
	RequireID string `json:"require_id"`
}

// POST /api/v1/testcase/search
// Accepts task_id or require_id; task_id wins when both are present.
func (h *TestcaseHandler) Search(c *gin.Context) {
	var req testcaseSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.TaskID == "" && req.RequireID == "") {
		RespondError(c, http.StatusBadRequest, "task_id or require_id is required", nil)
		return
	}

	var (
		cases []*types.TestCase
		err   error
	)
	if req.TaskID != "" {
		cases, err = h.testcaseRepo.GetByTaskID(c.Request.Context(), nil, req.TaskID)
	} else {
		cases, err = h.testcaseRepo.GetByRequireID(c.Request.Context(), nil, req.RequireID)
	}
	if err != nil {
		h.log.Error("Testcase search failed", "task_id", req.TaskID, "require_id", req.RequireID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	RespondOK(c, "Success", ListData{Total: int64(len(cases)), List: cases})
}

type testcaseUpdateRequest struct {
	CaseID         string `json:"case_id" binding:"required"`
	CaseName       string `json:"case_name"`
	Preconditions  any    `json:"preconditions"`
	TestSteps      any    `json:"test_steps"`
	ExpectedResult any    `json:"expected_result"`
	Priority       string `json:"priority"`
	TestType       any    `json:"test_type"`
	IsCreated      *bool  `json:"is_created"`
	IsModified     *bool  `json:"is_modified"`
	IsAccepted     *bool  `json:"is_accepted"`
	IsReviewed     *bool  `json:"is_reviewed"`
	IsVerified     *bool  `json:"is_verified"`
}

// POST /api/v1/testcase/update
func (h *TestcaseHandler) Update(c *gin.Context) {
	var req testcaseUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "case_id is required", nil)
		return
	}

	updates := map[string]interface{}{}
	if req.CaseName != "" {
		updates["case_name"] = req.CaseName
	}
	if req.Preconditions != nil {
		updates["preconditions"] = services.MustJSON(services.ToStringList(req.Preconditions))
	}
	if req.TestSteps != nil {
		updates["test_steps"] = services.MustJSON(services.ToStringList(req.TestSteps))
	}
	if req.ExpectedResult != nil {
		updates["expected_result"] = services.MustJSON(services.ToStringList(req.ExpectedResult))
	}
	if req.Priority != "" {
		updates["priority"] = req.Priority
	}
	if req.TestType != nil {
		updates["test_type"] = services.MustJSON(services.ToStringList(req.TestType))
	}
	for column, flag := range map[string]*bool{
		"is_created":  req.IsCreated,
		"is_modified": req.IsModified,
		"is_accepted": req.IsAccepted,
		"is_reviewed": req.IsReviewed,
		"is_verified": req.IsVerified,
	} {
		if flag != nil {
			updates[column] = *flag
		}
	}
	if len(updates) == 0 {
		RespondError(c, http.StatusBadRequest, "nothing to update", nil)
		return
	}

	rows, err := h.testcaseRepo.UpdateFields(c.Request.Context(), nil, req.CaseID, updates)
	if err != nil {
		h.log.Error("Testcase update failed", "case_id", req.CaseID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if rows == 0 {
		RespondError(c, http.StatusNotFound, "test case not found", nil)
		return
	}
	RespondOK(c, "testcase updated", gin.H{"updated_rows": rows})
}

type testcaseDeleteRequest struct {
	CaseID string `json:"case_id" binding:"required"`
}

// POST /api/v1/testcase/delete
func (h *TestcaseHandler) Delete(c *gin.Context) {
	var req testcaseDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "case_id is required", nil)
		return
	}

	rows, err := h.testcaseRepo.Delete(c.Request.Context(), nil, req.CaseID)
	if err != nil {
		h.log.Error("Testcase delete failed", "case_id", req.CaseID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if rows == 0 {
		RespondError(c, http.StatusNotFound, "test case not found", nil)
		return
	}
	RespondOK(c, "testcase deleted", gin.H{"deleted_rows": rows})
}
