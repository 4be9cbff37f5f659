package ai

import (
	"context"
	"time"

	"backend/internal/costtrack"
	"backend/internal/logger"
	"backend/internal/metrics"

	"go.uber.org/zap"
)

// TrackedClient 带成本追踪的客户端包装器
// 对提供商调用计时、捕获用量或错误、计价并上报给追踪器；追踪逻辑严格环绕在
// 真实调用外侧，追踪故障被就地吞掉，底层调用的结果与错误原样返回给调用方
type TrackedClient struct {
	client  ModelClient
	tracker *costtrack.Tracker
	service costtrack.Service

	chatModel      string
	embeddingModel string
	whisperModel   string
}

// NewTrackedClient 创建带成本追踪的客户端
// 模型名用于上报与计价，与底层客户端的默认模型保持一致
func NewTrackedClient(client ModelClient, tracker *costtrack.Tracker, service costtrack.Service, cfg ClientConfig) *TrackedClient {
	return &TrackedClient{
		client:         client,
		tracker:        tracker,
		service:        service,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		whisperModel:   cfg.WhisperModel,
	}
}

// ChatCompletion 对话补全（带成本追踪）
func (c *TrackedClient) ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	r := *req
	if r.Model == "" {
		r.Model = c.chatModel
	}

	start := time.Now()
	resp, err := c.client.ChatCompletion(ctx, &r)
	duration := time.Since(start)

	var usage Usage
	if resp != nil {
		usage = resp.Usage
		// 部分网关不回传用量，用 tiktoken 兜底估算
		if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
			usage.PromptTokens = EstimateMessagesTokens(r.Model, r.Messages)
			usage.CompletionTokens = EstimateTokens(r.Model, resp.Content)
		}
	}

	c.report(ctx, "chat/completions", r.Model, usage, duration, err)
	return resp, err
}

// Embedding 文本向量化（带成本追踪）
func (c *TrackedClient) Embedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	r := *req
	if r.Model == "" {
		r.Model = c.embeddingModel
	}

	start := time.Now()
	resp, err := c.client.Embedding(ctx, &r)
	duration := time.Since(start)

	var usage Usage
	if resp != nil {
		usage = resp.Usage
		if usage.PromptTokens == 0 {
			usage.PromptTokens = EstimateTokens(r.Model, r.Input)
		}
	}

	c.report(ctx, "embeddings", r.Model, usage, duration, err)
	return resp, err
}

// Transcribe 语音转写（带成本追踪）
// 音频调用无 Token 用量，按调用时长计价
func (c *TrackedClient) Transcribe(ctx context.Context, req *TranscriptionRequest) (*TranscriptionResponse, error) {
	r := *req
	if r.Model == "" {
		r.Model = c.whisperModel
	}

	start := time.Now()
	resp, err := c.client.Transcribe(ctx, &r)
	duration := time.Since(start)

	c.report(ctx, "audio/transcriptions", r.Model, Usage{}, duration, err)
	return resp, err
}

// Name 客户端名称
func (c *TrackedClient) Name() string {
	return c.client.Name()
}

// report 构造调用完成事件并上报
// 每次调用恰好上报一次；任何追踪故障在此吞掉
func (c *TrackedClient) report(ctx context.Context, endpoint, model string, usage Usage, duration time.Duration, callErr error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("调用事件上报异常", zap.Any("panic", r))
		}
	}()

	event := costtrack.CallEvent{
		Service:      c.service,
		Endpoint:     endpoint,
		Model:        model,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		Duration:     duration,
		Success:      callErr == nil,
	}
	if callErr != nil {
		event.ErrorMessage = callErr.Error()
	}

	var cost float64
	if c.tracker != nil {
		cost = c.tracker.RecordCall(ctx, event)
	}

	metrics.RecordProviderCall(string(c.service), model, callErr == nil,
		cost, usage.PromptTokens, usage.CompletionTokens, duration.Seconds())
}
