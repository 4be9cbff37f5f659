package costtrack

import (
	"sync"
	"time"
)

// DefaultHistorySize 默认保留的已封存请求数量
const DefaultHistorySize = 1000

// HistoryStore 已封存请求的有界历史存储
// 固定容量环形缓冲，写满后先进先出淘汰；条目入库后不再被修改，
// 因此读路径可以安全返回指针
type HistoryStore struct {
	mu    sync.RWMutex
	buf   []*RequestSummary
	head  int // 最旧条目的下标
	size  int
	index map[string]*RequestSummary // request_id -> 条目，淘汰时同步删除
}

// NewHistoryStore 创建历史存储，capacity <= 0 时使用默认容量
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &HistoryStore{
		buf:   make([]*RequestSummary, capacity),
		index: make(map[string]*RequestSummary, capacity),
	}
}

// Push 追加一条已封存的请求汇总，容量满时淘汰最旧条目
func (h *HistoryStore) Push(summary *RequestSummary) {
	if summary == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	capacity := len(h.buf)
	if h.size < capacity {
		h.buf[(h.head+h.size)%capacity] = summary
		h.size++
	} else {
		// 覆盖最旧条目
		evicted := h.buf[h.head]
		delete(h.index, evicted.RequestID)
		h.buf[h.head] = summary
		h.head = (h.head + 1) % capacity
	}
	h.index[summary.RequestID] = summary
}

// Get 按请求 ID 查询，已淘汰或不存在返回 false
func (h *HistoryStore) Get(requestID string) (*RequestSummary, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	summary, ok := h.index[requestID]
	return summary, ok
}

// Recent 返回最近的 limit 条请求汇总，按入库时间倒序
func (h *HistoryStore) Recent(limit int) []*RequestSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.size {
		limit = h.size
	}

	capacity := len(h.buf)
	result := make([]*RequestSummary, 0, limit)
	for i := 0; i < limit; i++ {
		// 从最新条目向前遍历
		idx := (h.head + h.size - 1 - i + capacity) % capacity
		result = append(result, h.buf[idx])
	}
	return result
}

// ListForDate 返回开始时间落在指定 UTC 日期内的全部条目，按入库顺序
func (h *HistoryStore) ListForDate(date time.Time) []*RequestSummary {
	year, month, day := date.UTC().Date()

	h.mu.RLock()
	defer h.mu.RUnlock()

	capacity := len(h.buf)
	var result []*RequestSummary
	for i := 0; i < h.size; i++ {
		summary := h.buf[(h.head+i)%capacity]
		y, m, d := summary.StartTime.UTC().Date()
		if y == year && m == month && d == day {
			result = append(result, summary)
		}
	}
	return result
}

// Len 当前条目数
func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Capacity 最大容量
func (h *HistoryStore) Capacity() int {
	return len(h.buf)
}
