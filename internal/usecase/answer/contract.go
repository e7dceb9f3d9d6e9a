package answer

import (
	"context"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/plan"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
)

// Planner produces a validated aggregation plan for a question.
type Planner interface {
	Plan(ctx context.Context, question string) (plan.Plan, error)
}

// Searcher executes a raw query body against an index.
type Searcher interface {
	Search(ctx context.Context, index string, body []byte) (record.SearchResponse, error)
}

// Retriever runs hybrid retrieval with a precomputed query vector (nil for lexical only).
type Retriever interface {
	RetrieveVector(ctx context.Context, question string, vector []float32, topK int) ([]record.Record, error)
}

// Streamer opens a streamed chat completion.
type Streamer interface {
	Stream(ctx context.Context, messages []domain.Message) (domain.FragmentStream, error)
}
