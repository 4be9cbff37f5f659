package middleware

import (
	"fmt"
	"strings"

	"backend/internal/costtrack"
	"backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CostRequestIDKey Gin 上下文中的成本追踪请求 ID 键
const CostRequestIDKey = "cost_request_id"

// HeaderRequestID 响应头中的请求 ID
const HeaderRequestID = "X-Request-ID"

// CostTracking 成本追踪中间件
// 请求开始时开启追踪上下文并注入 context.Context，请求结束（含 panic 和客户端中断）
// 时通过 defer 保证封存——未封存的开放汇总属于资源泄漏
func CostTracking(tracker *costtrack.Tracker, skipPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldSkip(c.Request.URL.Path, skipPaths) {
			c.Next()
			return
		}

		requestID := tracker.BeginRequest(c.Request.URL.Path, c.ClientIP())

		// 注入 Gin 上下文与 context.Context，下游提供商包装器由此关联到当前请求
		c.Set(CostRequestIDKey, requestID)
		c.Request = c.Request.WithContext(
			costtrack.WithRequestID(c.Request.Context(), requestID),
		)
		c.Header(HeaderRequestID, requestID)

		defer func() {
			if r := recover(); r != nil {
				// 先封存再继续抛出，交给外层 Recovery 中间件处理
				summary := tracker.EndRequest(requestID, false, fmt.Sprintf("panic: %v", r))
				logSummary(summary)
				panic(r)
			}

			success := true
			errorMessage := ""
			if status := c.Writer.Status(); status >= 400 {
				success = false
				errorMessage = fmt.Sprintf("HTTP %d", status)
			}

			summary := tracker.EndRequest(requestID, success, errorMessage)
			logSummary(summary)
		}()

		c.Next()
	}
}

// shouldSkip 判断路径是否不参与成本追踪
func shouldSkip(path string, skipPaths []string) bool {
	for _, skip := range skipPaths {
		if skip == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == skip || strings.HasPrefix(path, skip+"/") {
			return true
		}
	}
	return false
}

// logSummary 输出请求成本汇总日志
func logSummary(summary *costtrack.RequestSummary) {
	if summary == nil {
		return
	}

	calls := make([]string, 0, len(summary.APICalls))
	for _, call := range summary.APICalls {
		calls = append(calls, fmt.Sprintf("%s/%s $%.6f", call.Service, call.Model, call.Cost))
	}

	logger.Info("请求成本汇总",
		zap.String("request_id", summary.RequestID),
		zap.String("endpoint", summary.Endpoint),
		zap.Duration("duration", summary.EndTime.Sub(summary.StartTime)),
		zap.Float64("total_cost", summary.TotalCost),
		zap.Int("input_tokens", summary.TotalInputTokens),
		zap.Int("output_tokens", summary.TotalOutputTokens),
		zap.Int("api_calls", len(summary.APICalls)),
		zap.Strings("calls", calls),
		zap.Bool("success", summary.Success),
		zap.String("error", summary.ErrorMessage),
	)
}

// GetCostRequestID 从 Gin 上下文获取成本追踪请求 ID
func GetCostRequestID(c *gin.Context) string {
	if id, exists := c.Get(CostRequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
