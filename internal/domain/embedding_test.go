package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: s.vectors[text], PromptTokens: 2, TotalTokens: 3}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchCalls int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectors[t]
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: 7}, nil
}

func TestEmbedMany_FallbackPreservesOrder(t *testing.T) {
	inner := &stubEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}}

	res, err := EmbedMany(context.Background(), inner, []string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 Embed calls, got %d", inner.calls)
	}
	if res.Embeddings[0][1] != 1 || res.Embeddings[1][0] != 1 {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
	if res.TotalTokens != 6 || res.PromptTokens != 4 {
		t.Errorf("unexpected usage: prompt=%d total=%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedMany_UsesNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{stubEmbedder: stubEmbedder{vectors: map[string][]float32{"x": {0.5}}}}

	res, err := EmbedMany(context.Background(), inner, []string{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || inner.calls != 0 {
		t.Errorf("expected one batch call and no single calls, got batch=%d single=%d", inner.batchCalls, inner.calls)
	}
	if res.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", res.TotalTokens)
	}
}

func TestEmbedMany_Empty(t *testing.T) {
	inner := &stubEmbedder{}
	res, err := EmbedMany(context.Background(), inner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || inner.calls != 0 {
		t.Errorf("expected no work for empty input")
	}
}

func TestEmbedMany_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}

	_, err := EmbedMany(context.Background(), inner, []string{"a"})
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestProviderError_RateLimit(t *testing.T) {
	err := error(&ProviderError{StatusCode: 429, Message: "slow down", Err: ErrGenerationFailed})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Error("expected ErrGenerationFailed in chain")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("expected ErrRateLimited in chain for 429")
	}

	err = &ProviderError{StatusCode: 500, Message: "boom", Err: ErrEmbeddingProviderError}
	if errors.Is(err, ErrRateLimited) {
		t.Error("500 must not be reported as rate limited")
	}
}
