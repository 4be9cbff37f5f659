package costtrack

import (
	"context"
	"sync"
	"time"

	"backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// openRequest 进行中的请求追踪上下文
// 调用列表只会被同一请求内的（可能并发的）子调用追加，锁竞争仅限请求内部
type openRequest struct {
	mu      sync.Mutex
	summary RequestSummary
}

// Tracker 请求级成本追踪器（进程级单例，条目按请求作用域管理）
// 开放中的汇总由 Tracker 独占，封存后移交 HistoryStore，二者之外无人可变更
type Tracker struct {
	mu      sync.Mutex
	active  map[string]*openRequest
	history *HistoryStore
	calc    *Calculator
}

// NewTracker 创建成本追踪器
func NewTracker(calc *Calculator, history *HistoryStore) *Tracker {
	if history == nil {
		history = NewHistoryStore(DefaultHistorySize)
	}
	return &Tracker{
		active:  make(map[string]*openRequest),
		history: history,
		calc:    calc,
	}
}

// History 返回底层历史存储（查询层只读使用）
func (t *Tracker) History() *HistoryStore {
	return t.history
}

// Calculator 返回价格计算器（供价格表重载）
func (t *Tracker) Calculator() *Calculator {
	return t.calc
}

// BeginRequest 开始追踪一个新请求，返回请求 ID
func (t *Tracker) BeginRequest(endpoint, userIP string) string {
	requestID := uuid.New().String()

	req := &openRequest{
		summary: RequestSummary{
			RequestID: requestID,
			Endpoint:  endpoint,
			UserIP:    userIP,
			StartTime: time.Now().UTC(),
			Success:   true,
		},
	}

	t.mu.Lock()
	t.active[requestID] = req
	t.mu.Unlock()

	return requestID
}

// RecordCall 记录一次提供商调用完成事件，返回该次调用的计价成本
// 请求 ID 从上下文解析；无追踪上下文（未开始或已封存）时丢弃事件并记录日志。
// 追踪内部的任何故障都在此边界吞掉，绝不影响主请求
func (t *Tracker) RecordCall(ctx context.Context, event CallEvent) (cost float64) {
	defer func() {
		if r := recover(); r != nil {
			cost = 0
			logger.Error("成本追踪内部异常，事件已丢弃", zap.Any("panic", r))
		}
	}()

	return t.recordByID(RequestIDFrom(ctx), event)
}

// RecordCallByID 按显式请求 ID 记录调用事件（供不持有上下文的包装器使用）
func (t *Tracker) RecordCallByID(requestID string, event CallEvent) (cost float64) {
	defer func() {
		if r := recover(); r != nil {
			cost = 0
			logger.Error("成本追踪内部异常，事件已丢弃", zap.Any("panic", r))
		}
	}()

	return t.recordByID(requestID, event)
}

func (t *Tracker) recordByID(requestID string, event CallEvent) float64 {
	record := APICallRecord{
		Service:      event.Service,
		Endpoint:     event.Endpoint,
		Model:        event.Model,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		DurationMs:   event.Duration.Milliseconds(),
		Success:      event.Success,
		ErrorMessage: event.ErrorMessage,
		Timestamp:    time.Now().UTC(),
	}
	if t.calc != nil {
		record.Cost = t.calc.Price(event.Service, event.Model,
			event.InputTokens, event.OutputTokens, record.DurationMs)
	}

	if requestID == "" {
		logger.Warn("调用事件无追踪上下文，已丢弃",
			zap.String("service", string(event.Service)),
			zap.String("model", event.Model),
		)
		return record.Cost
	}

	t.mu.Lock()
	req, ok := t.active[requestID]
	t.mu.Unlock()

	if !ok {
		// 请求已封存后到达的迟到事件，按丢弃并记录处理
		logger.Warn("调用事件对应的请求已结束，已丢弃",
			zap.String("request_id", requestID),
			zap.String("service", string(event.Service)),
			zap.String("model", event.Model),
		)
		return record.Cost
	}

	// 追加顺序即调用完成顺序
	req.mu.Lock()
	req.summary.APICalls = append(req.summary.APICalls, record)
	req.mu.Unlock()

	return record.Cost
}

// EndRequest 结束并封存请求
// 冻结调用列表、盖上结束时间、按调用列表重算汇总，移入历史存储并返回封存副本。
// 对同一请求的第二次调用为记录日志的空操作，返回 nil（不会重复入库）
func (t *Tracker) EndRequest(requestID string, success bool, errorMessage string) *RequestSummary {
	t.mu.Lock()
	req, ok := t.active[requestID]
	if ok {
		delete(t.active, requestID)
	}
	t.mu.Unlock()

	if !ok {
		logger.Warn("EndRequest 未找到进行中的请求（重复结束或从未开始）",
			zap.String("request_id", requestID),
		)
		return nil
	}

	req.mu.Lock()
	defer req.mu.Unlock()

	req.summary.EndTime = time.Now().UTC()
	req.summary.Success = success
	req.summary.ErrorMessage = errorMessage
	req.summary.recomputeTotals()

	sealed := req.summary
	t.history.Push(&sealed)
	return &sealed
}

// ActiveCount 进行中的请求数量（泄漏检测用）
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// SummarySnapshot 查询指定请求的汇总
// 优先查历史存储；请求仍在进行中时返回开放汇总的深拷贝快照
func (t *Tracker) SummarySnapshot(requestID string) (*RequestSummary, bool) {
	if summary, ok := t.history.Get(requestID); ok {
		return summary, true
	}

	t.mu.Lock()
	req, ok := t.active[requestID]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}

	req.mu.Lock()
	defer req.mu.Unlock()

	snapshot := req.summary
	snapshot.APICalls = append([]APICallRecord(nil), req.summary.APICalls...)
	snapshot.recomputeTotals()
	return &snapshot, true
}
