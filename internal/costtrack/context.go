package costtrack

import "context"

// 上下文键
type contextKey string

const requestIDKey contextKey = "cost_request_id"

// WithRequestID 将追踪请求 ID 注入上下文
// HTTP 中间件在请求开始时注入，提供商调用包装器沿调用链透传该上下文即可，
// 无需在每层函数签名中显式传递请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom 从上下文提取追踪请求 ID，缺失时返回空串
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
