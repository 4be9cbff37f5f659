package rag

import (
	"context"
	"strings"
	"testing"

	"backend/internal/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient 固定向量的模拟客户端：按输入文本查表返回向量
type mockClient struct {
	vectors map[string][]float32
	chat    func(req *ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error)
}

func (m *mockClient) ChatCompletion(ctx context.Context, req *ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
	return m.chat(req)
}

func (m *mockClient) Embedding(ctx context.Context, req *ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if v, ok := m.vectors[req.Input]; ok {
		return &ai.EmbeddingResponse{Embedding: v}, nil
	}
	return &ai.EmbeddingResponse{Embedding: []float32{0, 0, 1}}, nil
}

func (m *mockClient) Transcribe(ctx context.Context, req *ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	return nil, nil
}

func (m *mockClient) Name() string { return "mock" }

func TestService_Answer(t *testing.T) {
	// 三个片段：两个贴近问题向量，一个正交
	mock := &mockClient{
		vectors: map[string][]float32{
			"tutuklama şartları": {1, 0, 0},
			"madde yüz":          {0.9, 0.1, 0},
			"madde iki yüz":      {0.8, 0.2, 0},
			"alakasız bölüm":     {0, 1, 0},
		},
		chat: func(req *ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
			require.Len(t, req.Messages, 1)
			prompt := req.Messages[0].Content
			// 提示词携带检索到的片段与来源标注
			assert.Contains(t, prompt, "Kaynak: cmk.txt")
			assert.Contains(t, prompt, "tutuklama şartları")
			return &ai.ChatCompletionResponse{Content: "Madde 100 uyarınca..."}, nil
		},
	}

	svc := NewService(mock, 2)
	require.NoError(t, svc.Ingest(context.Background(), []Document{
		{Source: "cmk.txt", Page: 1, Content: "madde yüz"},
		{Source: "cmk.txt", Page: 2, Content: "madde iki yüz"},
		{Source: "cmk.txt", Page: 3, Content: "alakasız bölüm"},
	}))
	assert.Equal(t, 3, svc.DocumentCount())

	answer, sources, err := svc.Answer(context.Background(), "tutuklama şartları")
	require.NoError(t, err)
	assert.Equal(t, "Madde 100 uyarınca...", answer)

	// topK=2：按相似度取最贴近的两个片段，正交片段不入选
	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].Page)
	assert.Equal(t, 2, sources[1].Page)
	for _, src := range sources {
		assert.NotEqual(t, "alakasız bölüm", src.Content)
	}
}

func TestService_Answer_EmptyIndex(t *testing.T) {
	mock := &mockClient{
		vectors: map[string][]float32{},
		chat: func(req *ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
			return &ai.ChatCompletionResponse{Content: "Bu bilgiye sahip değilim."}, nil
		},
	}
	svc := NewService(mock, 3)

	answer, sources, err := svc.Answer(context.Background(), "soru")
	require.NoError(t, err)
	assert.Equal(t, "Bu bilgiye sahip değilim.", answer)
	assert.Empty(t, sources)
}

func TestSplitChunks(t *testing.T) {
	t.Run("按空行分段", func(t *testing.T) {
		chunks := splitChunks("birinci bölüm\n\nikinci bölüm\n\n\n\nüçüncü")
		assert.Equal(t, []string{"birinci bölüm", "ikinci bölüm", "üçüncü"}, chunks)
	})

	t.Run("超长段落硬切", func(t *testing.T) {
		long := strings.Repeat("a", chunkSize*2+10)
		chunks := splitChunks(long)
		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0], chunkSize)
		assert.Len(t, chunks[1], chunkSize)
		assert.Len(t, chunks[2], 10)
	})

	t.Run("空文本返回空", func(t *testing.T) {
		assert.Empty(t, splitChunks("  \n\n \n"))
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "维度不一致返回0")
	assert.Zero(t, cosineSimilarity(nil, nil))
}
