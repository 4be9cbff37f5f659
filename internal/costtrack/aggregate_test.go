package costtrack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_TodayReport(t *testing.T) {
	tracker := newTestTracker()
	now := time.Now().UTC()

	// 两条今日请求，分别打到两个服务
	for i := 0; i < 2; i++ {
		requestID := tracker.BeginRequest("/api/chat", "")
		ctx := WithRequestID(context.Background(), requestID)
		tracker.RecordCall(ctx, CallEvent{
			Service:     ServiceOpenAI,
			Endpoint:    "embeddings",
			Model:       "text-embedding-3-small",
			InputTokens: 1000,
			Success:     true,
		})
		tracker.RecordCall(ctx, CallEvent{
			Service:      ServiceOpenRouter,
			Endpoint:     "chat/completions",
			Model:        "anthropic/claude-3.5-sonnet",
			InputTokens:  1000,
			OutputTokens: 1000,
			Success:      true,
		})
		tracker.EndRequest(requestID, true, "")
	}

	// 一条昨日请求，不应计入当日
	stale := &RequestSummary{
		RequestID: "stale",
		Endpoint:  "/api/chat",
		StartTime: now.AddDate(0, 0, -1),
		EndTime:   now.AddDate(0, 0, -1),
		TotalCost: 99,
		Success:   true,
	}
	tracker.History().Push(stale)

	report := tracker.TodayReport(now)

	assert.Equal(t, now.Format("2006-01-02"), report.Date)
	assert.Equal(t, 2, report.TotalRequests)
	assert.Equal(t, 4000, report.TotalInputTokens)
	assert.Equal(t, 2000, report.TotalOutputTokens)

	require.Contains(t, report.ServiceBreakdown, ServiceOpenAI)
	require.Contains(t, report.ServiceBreakdown, ServiceOpenRouter)

	openaiStat := report.ServiceBreakdown[ServiceOpenAI]
	assert.Equal(t, 2, openaiStat.Calls)
	assert.InDelta(t, 2*0.00002, openaiStat.Cost, 1e-12)

	routerStat := report.ServiceBreakdown[ServiceOpenRouter]
	assert.Equal(t, 2, routerStat.Calls)
	assert.InDelta(t, 2*(0.003+0.015), routerStat.Cost, 1e-12)

	// 总成本等于各服务之和
	assert.InDelta(t, openaiStat.Cost+routerStat.Cost, report.TotalCost, 1e-12)
}

func TestTracker_TodayReport_Empty(t *testing.T) {
	tracker := newTestTracker()
	report := tracker.TodayReport(time.Now().UTC())

	assert.Zero(t, report.TotalRequests)
	assert.Zero(t, report.TotalCost)
	assert.Empty(t, report.ServiceBreakdown)
}

func TestTracker_RecentPreviews(t *testing.T) {
	tracker := newTestTracker()

	var last string
	for i := 0; i < 5; i++ {
		requestID := tracker.BeginRequest("/api/chat", "")
		tracker.RecordCallByID(requestID, CallEvent{
			Service:     ServiceOpenAI,
			Endpoint:    "embeddings",
			Model:       "text-embedding-3-small",
			InputTokens: 100,
			Success:     true,
		})
		tracker.EndRequest(requestID, true, "")
		last = requestID
	}

	previews := tracker.RecentPreviews(2)
	require.Len(t, previews, 2)
	assert.Equal(t, last, previews[0].RequestID)
	assert.Equal(t, 1, previews[0].APICallsCount)
	assert.Equal(t, 100, previews[0].TotalInputTokens)
}

func TestTracker_RequestDetail(t *testing.T) {
	tracker := newTestTracker()

	t.Run("已封存请求_返回完整明细", func(t *testing.T) {
		requestID := tracker.BeginRequest("/api/chat", "")
		tracker.RecordCallByID(requestID, CallEvent{
			Service:     ServiceOpenRouter,
			Endpoint:    "chat/completions",
			Model:       "anthropic/claude-3.5-sonnet",
			InputTokens: 50,
			Success:     true,
		})
		tracker.EndRequest(requestID, true, "")

		detail, ok := tracker.RequestDetail(requestID)
		require.True(t, ok)
		assert.Len(t, detail.APICalls, 1)
	})

	t.Run("未知请求_返回未找到", func(t *testing.T) {
		_, ok := tracker.RequestDetail("no-such-request")
		assert.False(t, ok)
	})
}
