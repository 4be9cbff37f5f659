package ai

import (
	"context"
	"io"
)

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage Token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionRequest 对话补全请求
type ChatCompletionRequest struct {
	Model       string        `json:"model,omitempty"` // 为空时使用客户端默认模型
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse 对话补全响应
type ChatCompletionResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// EmbeddingRequest 向量化请求
type EmbeddingRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

// EmbeddingResponse 向量化响应
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
	Usage     Usage     `json:"usage"`
}

// TranscriptionRequest 语音转写请求
type TranscriptionRequest struct {
	Model    string    `json:"model,omitempty"`
	FileName string    `json:"file_name"`
	Reader   io.Reader `json:"-"`
	Language string    `json:"language,omitempty"`
}

// TranscriptionResponse 语音转写响应
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// ModelClient AI 提供商客户端统一接口
type ModelClient interface {
	// ChatCompletion 对话补全
	ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// Embedding 文本向量化
	Embedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)

	// Transcribe 语音转写
	Transcribe(ctx context.Context, req *TranscriptionRequest) (*TranscriptionResponse, error)

	// Name 客户端名称
	Name() string
}
