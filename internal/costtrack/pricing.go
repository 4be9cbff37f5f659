package costtrack

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"backend/internal/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ModelPricing 单个模型的价格
// 文本模型按每 1K Token 计价；音频模型（Whisper）按分钟计价
type ModelPricing struct {
	InputPer1K     float64 `yaml:"input_per_1k"`
	OutputPer1K    float64 `yaml:"output_per_1k"`
	AudioPerMinute float64 `yaml:"audio_per_minute"`
}

// durationPriced 是否按时长计价
func (p ModelPricing) durationPriced() bool {
	return p.AudioPerMinute > 0
}

// ServicePricing 单个服务的价格表
type ServicePricing struct {
	// Default 未知模型的兜底价格
	Default ModelPricing            `yaml:"default"`
	Models  map[string]ModelPricing `yaml:"models"`
}

// PricingTable 全量价格表，加载后不可变
// 模型名包含 . 和 /（如 anthropic/claude-3.5-sonnet），因此用 yaml.v3 直接解析，
// 不走 viper（viper 会把键中的点当作层级分隔符）
type PricingTable struct {
	Services map[Service]ServicePricing `yaml:"services"`
}

// LoadPricingTable 从 YAML 文件加载价格表
func LoadPricingTable(path string) (*PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取价格表失败: %w", err)
	}

	var table PricingTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("解析价格表失败: %w", err)
	}
	if len(table.Services) == 0 {
		return nil, fmt.Errorf("价格表为空: %s", path)
	}

	return &table, nil
}

// Calculator 价格计算器
// 持有价格表的原子快照，Reload 整表替换，请求中途不会看到半更新状态
type Calculator struct {
	table atomic.Pointer[PricingTable]
	path  string
}

// NewCalculator 创建价格计算器
func NewCalculator(table *PricingTable) *Calculator {
	c := &Calculator{}
	c.table.Store(table)
	return c
}

// NewCalculatorFromFile 从文件创建价格计算器，记录路径供 Reload 使用
func NewCalculatorFromFile(path string) (*Calculator, error) {
	table, err := LoadPricingTable(path)
	if err != nil {
		return nil, err
	}
	c := NewCalculator(table)
	c.path = path
	return c, nil
}

// Reload 重新加载价格表并原子替换
func (c *Calculator) Reload() error {
	if c.path == "" {
		return fmt.Errorf("价格计算器未绑定文件，无法重载")
	}
	table, err := LoadPricingTable(c.path)
	if err != nil {
		return err
	}
	c.table.Store(table)
	logger.Info("价格表已重载", zap.String("path", c.path))
	return nil
}

// Price 计算单次调用成本
// 未知模型回退到该服务的兜底价格并记录告警，绝不向调用方返回错误
func (c *Calculator) Price(service Service, model string, inputTokens, outputTokens int, durationMs int64) float64 {
	table := c.table.Load()
	if table == nil {
		return 0
	}

	svc, ok := table.Services[service]
	if !ok {
		logger.Warn("价格表中无此服务，成本记为 0",
			zap.String("service", string(service)),
			zap.String("model", model),
		)
		return 0
	}

	pricing, ok := svc.Models[model]
	if !ok {
		logger.Warn("价格表中无此模型，使用服务兜底价格",
			zap.String("service", string(service)),
			zap.String("model", model),
		)
		pricing = svc.Default
	}

	if pricing.durationPriced() {
		// 按分钟计价，不足一分钟按一分钟计
		minutes := math.Ceil(float64(durationMs) / 60000.0)
		return minutes * pricing.AudioPerMinute
	}

	return float64(inputTokens)/1000.0*pricing.InputPer1K +
		float64(outputTokens)/1000.0*pricing.OutputPer1K
}
