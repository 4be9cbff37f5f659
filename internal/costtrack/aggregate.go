package costtrack

import "time"

// TodayReport 计算指定时刻（UTC 日期）的当日成本汇总
// 纯读路径：过滤历史存储中开始时间落在当日的条目，按服务维度累加
func (t *Tracker) TodayReport(now time.Time) *DailyCostReport {
	day := now.UTC()
	entries := t.history.ListForDate(day)

	report := &DailyCostReport{
		Date:             day.Format("2006-01-02"),
		TotalRequests:    len(entries),
		ServiceBreakdown: make(map[Service]*ServiceStat),
	}

	for _, summary := range entries {
		report.TotalCost += summary.TotalCost
		report.TotalInputTokens += summary.TotalInputTokens
		report.TotalOutputTokens += summary.TotalOutputTokens

		for _, call := range summary.APICalls {
			stat, ok := report.ServiceBreakdown[call.Service]
			if !ok {
				stat = &ServiceStat{}
				report.ServiceBreakdown[call.Service] = stat
			}
			stat.Cost += call.Cost
			stat.InputTokens += call.InputTokens
			stat.OutputTokens += call.OutputTokens
			stat.Calls++
		}
	}

	return report
}

// RecentPreviews 返回最近 limit 条请求的轻量预览，按结束时间倒序
func (t *Tracker) RecentPreviews(limit int) []RequestPreview {
	entries := t.history.Recent(limit)

	previews := make([]RequestPreview, 0, len(entries))
	for _, summary := range entries {
		previews = append(previews, summary.Preview())
	}
	return previews
}

// RequestDetail 返回指定请求的完整汇总（含全部调用明细）
func (t *Tracker) RequestDetail(requestID string) (*RequestSummary, bool) {
	return t.SummarySnapshot(requestID)
}
