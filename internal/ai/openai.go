package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	APIKey         string
	BaseURL        string // 为空时使用 OpenAI 官方地址；指向 OpenRouter 时走 OpenRouter
	ChatModel      string
	EmbeddingModel string
	WhisperModel   string
	MaxRetries     int
}

// OpenAIClient 基于 go-openai 的客户端适配器
// OpenRouter 与 OpenAI 共用 OpenAI 协议，通过 BaseURL 区分
type OpenAIClient struct {
	client         *openai.Client
	name           string
	chatModel      string
	embeddingModel string
	whisperModel   string
	maxRetries     int
}

// NewOpenAIClient 创建客户端
func NewOpenAIClient(name string, cfg ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API Key 不能为空", name)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientConfig),
		name:           name,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		whisperModel:   cfg.WhisperModel,
		maxRetries:     maxRetries,
	}, nil
}

// ChatCompletion 对话补全（非流式）
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp openai.ChatCompletionResponse
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.client.CreateChatCompletion(ctx, openaiReq)
		if err == nil {
			break
		}
		if !isRetryableError(err) {
			break
		}
		// 指数退避
		if i < c.maxRetries {
			backoff := time.Duration(1<<uint(i)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s 对话补全失败: %w", c.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s 返回空响应", c.name)
	}

	return &ChatCompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Embedding 文本向量化
func (c *OpenAIClient) Embedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = c.embeddingModel
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{req.Input},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("%s 向量化失败: %w", c.name, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s 向量化返回空响应", c.name)
	}

	return &EmbeddingResponse{
		Embedding: resp.Data[0].Embedding,
		Usage: Usage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Transcribe 语音转写（Whisper）
func (c *OpenAIClient) Transcribe(ctx context.Context, req *TranscriptionRequest) (*TranscriptionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.whisperModel
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: req.FileName,
		Reader:   req.Reader,
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("%s 语音转写失败: %w", c.name, err)
	}

	return &TranscriptionResponse{Text: resp.Text}, nil
}

// Name 客户端名称
func (c *OpenAIClient) Name() string {
	return c.name
}

// isRetryableError 网络错误、限流与服务器错误可重试
func isRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "504")
}
