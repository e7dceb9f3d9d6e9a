package retrieval

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
)

type mockSearcher struct {
	resp  record.SearchResponse
	err   error
	index string
	body  []byte
	calls int
}

func (m *mockSearcher) Search(_ context.Context, index string, body []byte) (record.SearchResponse, error) {
	m.calls++
	m.index = index
	m.body = body
	return m.resp, m.err
}

func (m *mockSearcher) decoded() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(m.body, &out)
	return out
}

type mockEmbedder struct {
	vector []float32
	tokens int
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector, TotalTokens: m.tokens}, nil
}
