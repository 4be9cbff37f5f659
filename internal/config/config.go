package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	AI       AIConfig       `mapstructure:"ai"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	RAG      RagConfig      `mapstructure:"rag"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AIConfig AI 提供商配置
type AIConfig struct {
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
}

// OpenAIConfig OpenAI 配置（向量化、语音转写）
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	EmbeddingModel string `mapstructure:"embedding_model"` // 默认 text-embedding-3-small
	WhisperModel   string `mapstructure:"whisper_model"`   // 默认 whisper-1
}

// OpenRouterConfig OpenRouter 配置（对话补全）
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // 默认 https://openrouter.ai/api/v1
	Model   string `mapstructure:"model"`
}

// TrackingConfig 成本追踪配置
type TrackingConfig struct {
	HistorySize int      `mapstructure:"history_size"` // 已完成请求保留数量，默认 1000
	PricingPath string   `mapstructure:"pricing_path"` // 价格表文件路径
	SkipPaths   []string `mapstructure:"skip_paths"`   // 不进行成本追踪的路径前缀
}

// RagConfig RAG 相关配置
type RagConfig struct {
	DataPath string `mapstructure:"data_path"` // 文档语料目录
	TopK     int    `mapstructure:"top_k"`     // 检索返回的片段数量
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_SERVER_PORT

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults()

	globalConfig = &cfg
	return &cfg, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Tracking.HistorySize <= 0 {
		c.Tracking.HistorySize = 1000
	}
	if c.Tracking.PricingPath == "" {
		c.Tracking.PricingPath = "./config/pricing.yaml"
	}
	if len(c.Tracking.SkipPaths) == 0 {
		c.Tracking.SkipPaths = []string{"/", "/health", "/metrics", "/swagger", "/static"}
	}
	if c.AI.OpenRouter.BaseURL == "" {
		c.AI.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.AI.OpenAI.EmbeddingModel == "" {
		c.AI.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.AI.OpenAI.WhisperModel == "" {
		c.AI.OpenAI.WhisperModel = "whisper-1"
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 4
	}
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}
