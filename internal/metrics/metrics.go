package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmk_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmk_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 提供商调用指标
var (
	// ProviderCallsTotal 提供商调用总数
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmk_provider_calls_total",
			Help: "提供商调用总数",
		},
		[]string{"service", "model", "status"},
	)

	// ProviderCallDuration 提供商调用耗时（秒）
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmk_provider_call_duration_seconds",
			Help:    "提供商调用耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service", "model"},
	)

	// ProviderCallTokens 提供商调用 Token 数量
	ProviderCallTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmk_provider_call_tokens_total",
			Help: "提供商调用 Token 总数",
		},
		[]string{"service", "model", "type"}, // type: input / output
	)

	// ProviderCallCost 提供商调用成本（美元）
	ProviderCallCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmk_provider_call_cost_usd_total",
			Help: "提供商调用累计成本（USD）",
		},
		[]string{"service", "model"},
	)
)

// RecordProviderCall 记录一次提供商调用的指标
func RecordProviderCall(service, model string, success bool, cost float64, inputTokens, outputTokens int, durationSeconds float64) {
	status := "success"
	if !success {
		status = "failed"
	}

	ProviderCallsTotal.WithLabelValues(service, model, status).Inc()
	ProviderCallDuration.WithLabelValues(service, model).Observe(durationSeconds)

	if inputTokens > 0 {
		ProviderCallTokens.WithLabelValues(service, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		ProviderCallTokens.WithLabelValues(service, model, "output").Add(float64(outputTokens))
	}
	if cost > 0 {
		ProviderCallCost.WithLabelValues(service, model).Add(cost)
	}
}
