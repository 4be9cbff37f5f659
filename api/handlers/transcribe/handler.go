package transcribe

import (
	"net/http"
	"strings"

	"backend/internal/ai"
	"backend/internal/common"
	"backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 语音转写 Handler
// 在服务端代理 Whisper 调用，避免向客户端暴露提供商密钥
type Handler struct {
	client   ai.ModelClient
	language string
}

// NewHandler 创建 Handler
func NewHandler(client ai.ModelClient, language string) *Handler {
	return &Handler{client: client, language: language}
}

// Transcribe 语音转写
// @Summary 语音转写
// @Description 上传音频文件并转写为文本
// @Tags Transcribe
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "音频文件"
// @Success 200 {object} map[string]string
// @Failure 400 {object} common.APIResponse
// @Failure 503 {object} common.APIResponse
// @Router /api/transcribe [post]
func (h *Handler) Transcribe(c *gin.Context) {
	if h.client == nil {
		common.ResponseServiceUnavailable(c, "转写服务不可用")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.ResponseBadRequest(c, "缺少音频文件")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		common.ResponseBadRequest(c, "文件类型无效，请上传音频文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.ResponseServerError(c, "读取上传文件失败")
		return
	}
	defer file.Close()

	resp, err := h.client.Transcribe(c.Request.Context(), &ai.TranscriptionRequest{
		FileName: fileHeader.Filename,
		Reader:   file,
		Language: h.language,
	})
	if err != nil {
		logger.Error("语音转写失败", zap.Error(err))
		common.ResponseServerError(c, "语音转写失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": resp.Text})
}
