package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
	"github.com/kailas-cloud/ragbot/internal/logger"
)

// BroadRecall is the topK for "every match"; reranking narrows it later.
const BroadRecall = 10000

// Service runs hybrid (lexical + knn) searches over the passage index.
type Service struct {
	store    Searcher
	embed    Embedder
	index    string
	semantic bool
	logger   *zap.Logger
}

// New creates a retrieval service. embed may be nil, which disables the knn clause.
func New(store Searcher, embed Embedder, index string, semantic bool, logger *zap.Logger) *Service {
	return &Service{store: store, embed: embed, index: index, semantic: semantic, logger: logger}
}

// Semantic reports whether the knn clause is in use.
func (s *Service) Semantic() bool { return s.semantic && s.embed != nil }

// Retrieve embeds the question when semantic retrieval is on and searches.
// An embedding failure degrades to a lexical-only search.
func (s *Service) Retrieve(ctx context.Context, question string, topK int) ([]record.Record, error) {
	var vector []float32
	if s.Semantic() {
		res, err := s.embed.Embed(ctx, question)
		if err != nil {
			logger.WithRequestID(ctx, s.logger).Warn("Query embedding failed, searching lexically", zap.Error(err))
		} else {
			domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)
			vector = res.Embedding
		}
	}
	return s.RetrieveVector(ctx, question, vector, topK)
}

// RetrieveVector searches with an already computed query vector. The vector
// is ignored when semantic retrieval is off; nil means lexical only.
func (s *Service) RetrieveVector(
	ctx context.Context, question string, vector []float32, topK int,
) ([]record.Record, error) {
	if topK <= 0 {
		return []record.Record{}, nil
	}
	if !s.semantic {
		vector = nil
	}

	body, err := buildBody(question, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: build body: %w", domain.ErrRetrievalFailed, err)
	}

	start := time.Now()
	resp, err := s.store.Search(ctx, s.index, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	hits := resp.Hits
	if hits == nil {
		hits = []record.Record{}
	}
	logger.WithRequestID(ctx, s.logger).Debug("Retrieve completed",
		zap.String("index", s.index),
		zap.Int("top_k", topK),
		zap.Bool("knn", len(vector) > 0),
		zap.Int("hits", len(hits)),
		zap.Duration("duration", time.Since(start)),
	)
	return hits, nil
}
