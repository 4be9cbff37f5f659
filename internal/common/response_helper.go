package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseSuccess 返回成功响应
func ResponseSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse(data))
}

// ResponseError 返回错误响应
func ResponseError(c *gin.Context, code int, message string) {
	httpStatus := http.StatusOK // 业务错误默认返回200

	// 特殊业务状态码映射到HTTP状态码
	switch code {
	case CodeNotFound:
		httpStatus = http.StatusNotFound
	case CodeInvalidRequest:
		httpStatus = http.StatusBadRequest
	case CodeInternalError, CodeProviderCallFailed:
		httpStatus = http.StatusInternalServerError
	case CodeServiceUnavailable:
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, ErrorResponse(code, message))
}

// ResponseBadRequest 返回参数错误响应
func ResponseBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "请求参数错误"
	}
	ResponseError(c, CodeInvalidRequest, message)
}

// ResponseNotFound 返回资源不存在响应
func ResponseNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "资源不存在"
	}
	ResponseError(c, CodeNotFound, message)
}

// ResponseServerError 返回服务器错误响应
func ResponseServerError(c *gin.Context, message string) {
	if message == "" {
		message = "服务器内部错误"
	}
	ResponseError(c, CodeInternalError, message)
}

// ResponseServiceUnavailable 返回服务不可用响应
func ResponseServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "服务暂不可用"
	}
	ResponseError(c, CodeServiceUnavailable, message)
}
