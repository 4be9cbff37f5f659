package chat

import (
	"net/http"

	"backend/internal/common"
	"backend/internal/logger"
	"backend/internal/rag"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatRequest 对话请求
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	Answer  string       `json:"answer"`
	Sources []rag.Source `json:"sources"`
}

// Handler RAG 对话 Handler
type Handler struct {
	service *rag.Service
}

// NewHandler 创建 Handler
func NewHandler(service *rag.Service) *Handler {
	return &Handler{service: service}
}

// Chat RAG 问答
// @Summary RAG 问答
// @Description 接收问题，经检索增强生成答案并返回引用来源
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body ChatRequest true "问题"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} common.APIResponse
// @Failure 503 {object} common.APIResponse
// @Router /api/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "问题不能为空")
		return
	}

	if h.service == nil {
		common.ResponseServiceUnavailable(c, "RAG 服务不可用")
		return
	}

	answer, sources, err := h.service.Answer(c.Request.Context(), req.Question)
	if err != nil {
		logger.Error("问答处理失败", zap.Error(err))
		common.ResponseServerError(c, "处理请求时出错")
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Answer:  answer,
		Sources: sources,
	})
}
