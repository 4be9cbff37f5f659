package api

import (
	"context"
	"net/http"
	"time"

	chatHandlers "backend/api/handlers/chat"
	costsHandlers "backend/api/handlers/costs"
	transcribeHandlers "backend/api/handlers/transcribe"

	"backend/internal/ai"
	"backend/internal/config"
	"backend/internal/costtrack"
	"backend/internal/logger"
	"backend/internal/metrics"
	middlewarepkg "backend/internal/middleware"
	"backend/internal/rag"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter 设置并返回 Gin 路由与成本追踪器
func SetupRouter(cfg *config.Config) (*gin.Engine, *costtrack.Tracker) {
	router := gin.New()

	// 价格计算器：加载失败时退回空表（未知模型走兜底价），不阻塞启动
	calc, err := costtrack.NewCalculatorFromFile(cfg.Tracking.PricingPath)
	if err != nil {
		logger.Error("加载价格表失败，所有调用将按兜底价计价", zap.Error(err))
		calc = costtrack.NewCalculator(&costtrack.PricingTable{
			Services: map[costtrack.Service]costtrack.ServicePricing{
				costtrack.ServiceOpenAI:     {},
				costtrack.ServiceOpenRouter: {},
			},
		})
	}

	tracker := costtrack.NewTracker(calc, costtrack.NewHistoryStore(cfg.Tracking.HistorySize))

	// 提供商客户端（带成本追踪包装）
	llmClient := buildLLMClient(cfg, tracker)
	audioClient := buildAudioClient(cfg, tracker)

	// RAG 服务
	ragService := buildRAGService(cfg, llmClient, audioClient)

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())
	router.Use(middlewarepkg.CostTracking(tracker, cfg.Tracking.SkipPaths))

	// 公开端点
	router.GET("/", Welcome())
	router.GET("/health", HealthCheck(tracker))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 业务端点
	chatHandler := chatHandlers.NewHandler(ragService)
	transcribeHandler := transcribeHandlers.NewHandler(audioClient, "tr")
	costsHandler := costsHandlers.NewHandler(tracker)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/chat", chatHandler.Chat)
		apiGroup.POST("/transcribe", transcribeHandler.Transcribe)

		costsGroup := apiGroup.Group("/costs")
		{
			costsGroup.GET("/today", costsHandler.GetToday)
			costsGroup.GET("/recent", costsHandler.GetRecent)
			costsGroup.GET("/request/:id", costsHandler.GetRequest)
		}
	}

	return router, tracker
}

// buildLLMClient 构建对话补全客户端（OpenRouter）
func buildLLMClient(cfg *config.Config, tracker *costtrack.Tracker) ai.ModelClient {
	clientCfg := ai.ClientConfig{
		APIKey:    cfg.AI.OpenRouter.APIKey,
		BaseURL:   cfg.AI.OpenRouter.BaseURL,
		ChatModel: cfg.AI.OpenRouter.Model,
	}
	client, err := ai.NewOpenAIClient("openrouter", clientCfg)
	if err != nil {
		logger.Warn("OpenRouter 客户端不可用", zap.Error(err))
		return nil
	}
	return ai.NewTrackedClient(client, tracker, costtrack.ServiceOpenRouter, clientCfg)
}

// buildAudioClient 构建向量化与语音转写客户端（OpenAI）
func buildAudioClient(cfg *config.Config, tracker *costtrack.Tracker) ai.ModelClient {
	clientCfg := ai.ClientConfig{
		APIKey:         cfg.AI.OpenAI.APIKey,
		BaseURL:        cfg.AI.OpenAI.BaseURL,
		EmbeddingModel: cfg.AI.OpenAI.EmbeddingModel,
		WhisperModel:   cfg.AI.OpenAI.WhisperModel,
	}
	client, err := ai.NewOpenAIClient("openai", clientCfg)
	if err != nil {
		logger.Warn("OpenAI 客户端不可用", zap.Error(err))
		return nil
	}
	return ai.NewTrackedClient(client, tracker, costtrack.ServiceOpenAI, clientCfg)
}

// buildRAGService 构建 RAG 服务并加载语料
// 对话走 OpenRouter，向量化走 OpenAI；入库阶段不属于任何请求，事件按无上下文丢弃
func buildRAGService(cfg *config.Config, llmClient, embeddingClient ai.ModelClient) *rag.Service {
	if llmClient == nil || embeddingClient == nil {
		logger.Warn("提供商客户端缺失，RAG 服务未启用")
		return nil
	}

	service := rag.NewService(&splitClient{chat: llmClient, other: embeddingClient}, cfg.RAG.TopK)

	if cfg.RAG.DataPath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := service.LoadDirectory(ctx, cfg.RAG.DataPath); err != nil {
			logger.Error("语料加载失败，RAG 将在无上下文的情况下回答", zap.Error(err))
		}
	}

	return service
}

// splitClient 将对话与向量化/转写分派到不同提供商的组合客户端
type splitClient struct {
	chat  ai.ModelClient
	other ai.ModelClient
}

func (s *splitClient) ChatCompletion(ctx context.Context, req *ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
	return s.chat.ChatCompletion(ctx, req)
}

func (s *splitClient) Embedding(ctx context.Context, req *ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	return s.other.Embedding(ctx, req)
}

func (s *splitClient) Transcribe(ctx context.Context, req *ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	return s.other.Transcribe(ctx, req)
}

func (s *splitClient) Name() string {
	return "split"
}

// Welcome 根路径欢迎信息
func Welcome() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the CMK Asistanı API. See /health for status.",
		})
	}
}

// HealthCheck 健康检查，附带当日成本快照
func HealthCheck(tracker *costtrack.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     "cmk-asistan-api",
			"time":        time.Now().UTC(),
			"costs_today": tracker.TodayReport(time.Now()),
		})
	}
}
