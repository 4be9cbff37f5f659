package costtrack

import "time"

// Service 提供商服务类型
type Service string

const (
	// ServiceOpenAI OpenAI（向量化、语音转写）
	ServiceOpenAI Service = "openai"
	// ServiceOpenRouter OpenRouter（对话补全）
	ServiceOpenRouter Service = "openrouter"
)

// CallEvent 提供商调用完成事件
// 由各提供商调用包装器在调用结束（成功或失败）时上报，一次调用恰好上报一次
type CallEvent struct {
	Service      Service
	Endpoint     string // 如 chat/completions、embeddings、audio/transcriptions
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Success      bool
	ErrorMessage string
}

// APICallRecord 单次已计价的提供商调用，创建后不可变
type APICallRecord struct {
	Service      Service   `json:"service"`
	Endpoint     string    `json:"endpoint"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// RequestSummary 单个入站 HTTP 请求的成本汇总
// 请求存活期间为开放状态（调用列表持续增长），请求结束时封存为不可变快照；
// 封存后 Total* 字段始终等于 APICalls 的逐项求和
type RequestSummary struct {
	RequestID         string          `json:"request_id"`
	Endpoint          string          `json:"endpoint"`
	UserIP            string          `json:"user_ip,omitempty"`
	StartTime         time.Time       `json:"start_time"`
	EndTime           time.Time       `json:"end_time"`
	APICalls          []APICallRecord `json:"api_calls"`
	TotalCost         float64         `json:"total_cost"`
	TotalInputTokens  int             `json:"total_input_tokens"`
	TotalOutputTokens int             `json:"total_output_tokens"`
	Success           bool            `json:"success"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// recomputeTotals 根据调用列表重算汇总字段
// 请求级 Success 与单次调用的成败无关，由 EndRequest 单独给出
func (s *RequestSummary) recomputeTotals() {
	s.TotalCost = 0
	s.TotalInputTokens = 0
	s.TotalOutputTokens = 0
	for _, call := range s.APICalls {
		s.TotalCost += call.Cost
		s.TotalInputTokens += call.InputTokens
		s.TotalOutputTokens += call.OutputTokens
	}
}

// RequestPreview 请求的轻量预览（不含调用明细）
type RequestPreview struct {
	RequestID         string    `json:"request_id"`
	Endpoint          string    `json:"endpoint"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	TotalCost         float64   `json:"total_cost"`
	TotalInputTokens  int       `json:"total_input_tokens"`
	TotalOutputTokens int       `json:"total_output_tokens"`
	Success           bool      `json:"success"`
	APICallsCount     int       `json:"api_calls_count"`
}

// Preview 生成请求预览
func (s *RequestSummary) Preview() RequestPreview {
	return RequestPreview{
		RequestID:         s.RequestID,
		Endpoint:          s.Endpoint,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		TotalCost:         s.TotalCost,
		TotalInputTokens:  s.TotalInputTokens,
		TotalOutputTokens: s.TotalOutputTokens,
		Success:           s.Success,
		APICallsCount:     len(s.APICalls),
	}
}

// ServiceStat 按服务维度的成本统计
type ServiceStat struct {
	Cost         float64 `json:"cost"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Calls        int     `json:"calls"`
}

// DailyCostReport 单日成本汇总（查询时即时计算，不落存储）
type DailyCostReport struct {
	Date              string                   `json:"date"` // YYYY-MM-DD（UTC）
	TotalCost         float64                  `json:"total_cost"`
	TotalInputTokens  int                      `json:"total_input_tokens"`
	TotalOutputTokens int                      `json:"total_output_tokens"`
	TotalRequests     int                      `json:"total_requests"`
	ServiceBreakdown  map[Service]*ServiceStat `json:"service_breakdown"`
}
