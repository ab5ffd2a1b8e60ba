package biz

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/pawcare/internal/pawcare/store"
	"github.com/kart-io/pawcare/pkg/llm"
)

const testDim = 32

// bowEmbedding 词袋哈希向量，相同词汇的文本余弦相似度更高。
type bowEmbedding struct {
	mu     sync.Mutex
	dim    int
	calls  int
	err    error
	native int // 非零时返回该长度，用于测试维度适配
}

func (f *bowEmbedding) vector(text string) []float32 {
	n := f.dim
	if f.native > 0 {
		n = f.native
	}
	v := make([]float32, n)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!()")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%n]++
	}
	return v
}

func (f *bowEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *bowEmbedding) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *bowEmbedding) Name() string { return "bow" }

// memStore 内存向量存储，余弦相似度排序。
type memStore struct {
	mu        sync.Mutex
	vectors   map[string]store.Vector
	upserts   int
	upsertErr error
	queryErr  error
	queries   int
	ensureErr error
}

func newMemStore() *memStore {
	return &memStore{vectors: make(map[string]store.Vector)}
}

func (s *memStore) EnsureCollection(context.Context) error { return s.ensureErr }

func (s *memStore) Upsert(_ context.Context, vectors []store.Vector) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	for _, v := range vectors {
		s.vectors[v.ID] = v
	}
	return len(vectors), nil
}

func (s *memStore) Query(_ context.Context, vector []float32, topK int) ([]store.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []store.ScoredChunk
	for _, v := range s.vectors {
		out = append(out, store.ScoredChunk{
			ID:       v.ID,
			Text:     v.Metadata[store.MetaText],
			Source:   v.Metadata[store.MetaSource],
			Metadata: v.Metadata,
			Score:    cosine(vector, v.Values),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *memStore) Purge(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[string]store.Vector)
	return nil
}

func (s *memStore) Stats(context.Context) (*store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &store.Stats{Collection: "test", Dimension: testDim, Rows: int64(len(s.vectors))}, nil
}

func (s *memStore) Close(context.Context) error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// scriptedChat Chat 用于分类，Generate 用于回答。
type scriptedChat struct {
	mu sync.Mutex

	classifyReply string
	classifyErr   error
	classifyCalls int
	lastMessages  []llm.Message
	lastClassify  llm.ChatOptions

	generate      func(prompt string) (string, error)
	generateCalls int
	lastPrompt    string
	lastGenerate  llm.ChatOptions
}

func (c *scriptedChat) Chat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (string, error) {
	c.mu.Lock()
	c.classifyCalls++
	c.lastMessages = messages
	c.lastClassify = llm.ApplyChatOptions(opts...)
	c.mu.Unlock()
	if c.classifyErr != nil {
		return "", c.classifyErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.classifyReply, nil
}

func (c *scriptedChat) Generate(_ context.Context, prompt, _ string, opts ...llm.ChatOption) (string, error) {
	c.mu.Lock()
	c.generateCalls++
	c.lastPrompt = prompt
	c.lastGenerate = llm.ApplyChatOptions(opts...)
	gen := c.generate
	c.mu.Unlock()
	if gen == nil {
		return "OK", nil
	}
	return gen(prompt)
}

func (c *scriptedChat) Name() string { return "scripted" }

// stubVision 返回固定分数或错误。
type stubVision struct {
	scores []float64
	err    error
	calls  int
}

func (v *stubVision) Invoke(context.Context, []byte) ([]float64, error) {
	v.calls++
	return v.scores, v.err
}
