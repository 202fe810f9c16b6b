package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/services"
)

var allowedUploadExts = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

type RequireHandler struct {
	log          *logger.Logger
	requirements services.RequirementService
}

func NewRequireHandler(log *logger.Logger, requirements services.RequirementService) *RequireHandler {
	return &RequireHandler{
		log:          log.With("handler", "RequireHandler"),
		requirements: requirements,
	}
}

// POST /api/v1/file/upload
func (h *RequireHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "upload the document in the `file` field", nil)
		return
	}
	if fileHeader.Filename == "" {
		RespondError(c, http.StatusBadRequest, "empty file name", nil)
		return
	}
	if !allowedUploadExts[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
		RespondError(c, http.StatusBadRequest, "only PDF/Markdown/plain-text documents are supported", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "read upload: "+err.Error(), nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "read upload: "+err.Error(), nil)
		return
	}

	result, err := h.requirements.IngestDocument(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		h.log.Error("Document ingestion failed", "filename", fileHeader.Filename, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	RespondOK(c, "ok", gin.H{
		"require_id":      result.Requirement.RequireID,
		"require_name":    result.Requirement.RequireName,
		"description":     result.Requirement.Description,
		"business_domain": result.Requirement.BusinessDomain,
		"module":          result.Requirement.Module,
		"quality_score":   result.Requirement.QualityScore,
		"total_score":     result.Requirement.TotalScore,
		"tags":            result.Requirement.Tags,
		"source":          result.Requirement.Source,
		"added_nodes":     result.AddedNodes,
	})
}

// POST /api/v1/require/search
func (h *RequireHandler) Search(c *gin.Context) {
	requirements, err := h.requirements.List(c.Request.Context())
	if err != nil {
		h.log.Error("Requirement search failed", "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	RespondOK(c, "ok", requirements)
}

type requireUpdateRequest struct {
	RequireID    string `json:"require_id" binding:"required"`
	RequireName  string `json:"require_name" binding:"required"`
	Description  string `json:"description" binding:"required"`
	QualityScore any    `json:"quality_score" binding:"required"`
}

// POST /api/v1/require/update
func (h *RequireHandler) Update(c *gin.Context) {
	var req requireUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "missing required parameter: "+err.Error(), nil)
		return
	}

	updated, err := h.requirements.Update(c.Request.Context(), req.RequireID, map[string]interface{}{
		"require_name":  req.RequireName,
		"description":   req.Description,
		"quality_score": services.MustJSON(req.QualityScore),
	})
	if err != nil {
		h.log.Error("Requirement update failed", "require_id", req.RequireID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if updated == nil {
		RespondError(c, http.StatusNotFound, "requirement not found", nil)
		return
	}
	RespondOK(c, "requirement updated", updated)
}

type requireDeleteRequest struct {
	RequireID string `json:"require_id" binding:"required"`
}

// POST /api/v1/require/delete
func (h *RequireHandler) Delete(c *gin.Context) {
	var req requireDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "require_id is required", nil)
		return
	}
	rows, err := h.requirements.Delete(c.Request.Context(), req.RequireID)
	if err != nil {
		h.log.Error("Requirement delete failed", "require_id", req.RequireID, "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if rows == 0 {
		RespondError(c, http.StatusNotFound, "requirement not found", nil)
		return
	}
	RespondOK(c, "ok", gin.H{"require_id": req.RequireID})
}
