package ai

import "github.com/pkoukk/tiktoken-go"

// EstimateTokens 估算文本的 Token 数量
// 提供商响应缺少用量信息时（如流式返回）用作兜底
func EstimateTokens(model, text string) int {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// 编码表不可用时按经验值粗估
			return len(text) / 4
		}
	}
	return len(tkm.Encode(text, nil, nil))
}

// EstimateMessagesTokens 估算消息列表的 Token 总数
func EstimateMessagesTokens(model string, messages []ChatMessage) int {
	total := 0
	for _, msg := range messages {
		// content tokens + role 开销
		total += EstimateTokens(model, msg.Content) + 4
	}
	return total
}
