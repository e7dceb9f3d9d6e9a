package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
)

// Searcher runs a raw query body against an index.
type Searcher interface {
	Search(ctx context.Context, index string, body []byte) (record.SearchResponse, error)
}

// Embedder vectorizes the question for the knn clause.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
