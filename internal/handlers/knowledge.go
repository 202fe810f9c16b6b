package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/services"
)

type KnowledgeHandler struct {
	log       *logger.Logger
	knowledge services.KnowledgeService
}

func NewKnowledgeHandler(log *logger.Logger, knowledge services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{
		log:       log.With("handler", "KnowledgeHandler"),
		knowledge: knowledge,
	}
}

type knowledgeSearchRequest struct {
	Q string `json:"q" binding:"required"`
}

// POST /search?top_k=5
func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req knowledgeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "query parameter `q` is required", nil)
		return
	}

	topK, _ := strconv.Atoi(c.DefaultQuery("top_k", "5"))
	results, err := h.knowledge.Query(c.Request.Context(), req.Q, topK)
	if err != nil {
		h.log.Error("Knowledge search failed", "error", err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	RespondOK(c, "ok", gin.H{"results": results})
}
