package rag

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"backend/internal/ai"
	"backend/internal/logger"

	"go.uber.org/zap"
)

// 提示词模板：基于检索到的片段回答，答案不在片段中时明确说明
const promptTemplate = `Sen, Ceza Muhakemesi Kanunu (CMK) konusunda uzman bir Türk hukuk asistanısın.
Soruyu yalnızca aşağıdaki bağlam metinlerine dayanarak yanıtla.
Cevap metinlerde yoksa "Bu bilgiye sahip değilim." de ve kaynak belirtme.

Bağlam:
%s

Soru:
%s

Cevap:`

// chunkSize 单个文档片段的最大字符数
const chunkSize = 1200

// Document 已入库的文档片段
type Document struct {
	Source  string // 来源文件名
	Page    int    // 片段序号
	Content string

	embedding []float32
}

// Source 答案引用的来源片段
type Source struct {
	SourceDocument string `json:"source_document"`
	Page           int    `json:"page"`
	Content        string `json:"content"`
}

// Service RAG 问答服务
// 文档索引驻留内存：启动时从语料目录入库，检索用余弦相似度
type Service struct {
	mu     sync.RWMutex
	docs   []Document
	client ai.ModelClient
	topK   int
}

// NewService 创建 RAG 服务
// client 应为带成本追踪的客户端，向量化与对话补全调用由其自动上报
func NewService(client ai.ModelClient, topK int) *Service {
	if topK <= 0 {
		topK = 4
	}
	return &Service{
		client: client,
		topK:   topK,
	}
}

// DocumentCount 已入库片段数量
func (s *Service) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Ingest 将文档片段向量化后入库
func (s *Service) Ingest(ctx context.Context, docs []Document) error {
	for i := range docs {
		resp, err := s.client.Embedding(ctx, &ai.EmbeddingRequest{Input: docs[i].Content})
		if err != nil {
			return fmt.Errorf("片段向量化失败 (%s#%d): %w", docs[i].Source, docs[i].Page, err)
		}
		docs[i].embedding = resp.Embedding
	}

	s.mu.Lock()
	s.docs = append(s.docs, docs...)
	s.mu.Unlock()
	return nil
}

// LoadDirectory 从目录加载纯文本语料并入库
// 每个 .txt 文件按空行分段，超长段落再按 chunkSize 切分
func (s *Service) LoadDirectory(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("读取语料目录失败: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("读取语料文件失败: %w", err)
		}
		for i, chunk := range splitChunks(string(data)) {
			docs = append(docs, Document{
				Source:  entry.Name(),
				Page:    i + 1,
				Content: chunk,
			})
		}
	}

	if len(docs) == 0 {
		logger.Warn("语料目录为空，RAG 将在无上下文的情况下回答", zap.String("dir", dir))
		return nil
	}

	if err := s.Ingest(ctx, docs); err != nil {
		return err
	}
	logger.Info("语料入库完成", zap.String("dir", dir), zap.Int("chunks", len(docs)))
	return nil
}

// Answer 回答问题：检索相关片段并生成答案，返回答案与引用来源
func (s *Service) Answer(ctx context.Context, question string) (string, []Source, error) {
	sources, contextText, err := s.retrieve(ctx, question)
	if err != nil {
		return "", nil, err
	}

	prompt := fmt.Sprintf(promptTemplate, contextText, question)
	resp, err := s.client.ChatCompletion(ctx, &ai.ChatCompletionRequest{
		Messages:    []ai.ChatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	})
	if err != nil {
		return "", nil, fmt.Errorf("生成答案失败: %w", err)
	}

	return resp.Content, sources, nil
}

// retrieve 向量化问题并按余弦相似度取 topK 片段
func (s *Service) retrieve(ctx context.Context, question string) ([]Source, string, error) {
	resp, err := s.client.Embedding(ctx, &ai.EmbeddingRequest{Input: question})
	if err != nil {
		return nil, "", fmt.Errorf("问题向量化失败: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   *Document
		score float64
	}
	candidates := make([]scored, 0, len(s.docs))
	for i := range s.docs {
		candidates = append(candidates, scored{
			doc:   &s.docs[i],
			score: cosineSimilarity(resp.Embedding, s.docs[i].embedding),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	limit := s.topK
	if limit > len(candidates) {
		limit = len(candidates)
	}

	sources := make([]Source, 0, limit)
	var sb strings.Builder
	for _, c := range candidates[:limit] {
		sources = append(sources, Source{
			SourceDocument: c.doc.Source,
			Page:           c.doc.Page,
			Content:        c.doc.Content,
		})
		fmt.Fprintf(&sb, "Kaynak: %s, Bölüm: %d\n%s\n\n", c.doc.Source, c.doc.Page, c.doc.Content)
	}

	return sources, sb.String(), nil
}

// splitChunks 按空行分段，超长段落按 chunkSize 硬切
func splitChunks(text string) []string {
	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for len(para) > chunkSize {
			chunks = append(chunks, para[:chunkSize])
			para = para[chunkSize:]
		}
		chunks = append(chunks, para)
	}
	return chunks
}

// cosineSimilarity 余弦相似度
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
