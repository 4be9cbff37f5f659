package costs

import (
	"net/http"
	"strconv"
	"time"

	"backend/internal/common"
	"backend/internal/costtrack"

	"github.com/gin-gonic/gin"
)

// defaultRecentLimit recent 查询的默认条数
const defaultRecentLimit = 50

// Handler 成本查询 Handler
type Handler struct {
	tracker *costtrack.Tracker
}

// NewHandler 创建 Handler
func NewHandler(tracker *costtrack.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// GetToday 获取当日成本汇总
// @Summary 当日成本汇总
// @Description 按服务维度汇总当日（UTC）全部请求的成本与 Token 用量
// @Tags Costs
// @Produce json
// @Success 200 {object} costtrack.DailyCostReport
// @Router /api/costs/today [get]
func (h *Handler) GetToday(c *gin.Context) {
	report := h.tracker.TodayReport(time.Now())
	c.JSON(http.StatusOK, report)
}

// GetRecent 获取最近请求预览列表
// @Summary 最近请求预览
// @Description 返回最近 N 条请求的轻量预览（不含调用明细）
// @Tags Costs
// @Produce json
// @Param limit query int false "返回条数，默认50"
// @Success 200 {object} map[string]any
// @Failure 400 {object} common.APIResponse
// @Router /api/costs/recent [get]
func (h *Handler) GetRecent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			common.ResponseBadRequest(c, "limit 必须是正整数")
			return
		}
		limit = parsed
	}

	previews := h.tracker.RecentPreviews(limit)
	c.JSON(http.StatusOK, gin.H{
		"requests": previews,
		"limit":    limit,
	})
}

// GetRequest 获取单个请求的完整成本明细
// @Summary 请求成本明细
// @Description 返回指定请求的完整汇总，含每次提供商调用的明细
// @Tags Costs
// @Produce json
// @Param id path string true "请求ID"
// @Success 200 {object} costtrack.RequestSummary
// @Failure 404 {object} common.APIResponse
// @Router /api/costs/request/{id} [get]
func (h *Handler) GetRequest(c *gin.Context) {
	requestID := c.Param("id")

	summary, ok := h.tracker.RequestDetail(requestID)
	if !ok {
		// 已淘汰或从未存在，属正常查询结果而非故障
		common.ResponseNotFound(c, "请求不存在或已淘汰")
		return
	}

	c.JSON(http.StatusOK, summary)
}
