package answer

import (
	"github.com/kailas-cloud/ragbot/internal/domain/pipeline/mode"
	"github.com/kailas-cloud/ragbot/internal/usecase/rerank"
)

// FallbackPolicy tells the model what to do when the context is insufficient.
type FallbackPolicy string

// Fallback policies.
const (
	FallbackDontKnow   FallbackPolicy = "dont_know"
	FallbackBestEffort FallbackPolicy = "best_effort"
)

// IsValid reports whether p is a known policy.
func (p FallbackPolicy) IsValid() bool {
	return p == FallbackDontKnow || p == FallbackBestEffort
}

// Options tune one orchestrator instance.
type Options struct {
	Mode               mode.Mode
	AggregationIndex   string
	RetrievalTopK      int
	RerankTopK         int
	MMRLambda          float64
	BackfillEmbeddings bool
	HistoryTurns       int
	FallbackPolicy     FallbackPolicy
}

// DefaultOptions returns the settings the service ships with.
func DefaultOptions() Options {
	return Options{
		Mode:             mode.Auto,
		AggregationIndex: "sales_transactions",
		RetrievalTopK:    12,
		RerankTopK:       rerank.DefaultTopK,
		MMRLambda:        rerank.DefaultLambda,
		HistoryTurns:     6,
		FallbackPolicy:   FallbackDontKnow,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !o.Mode.IsValid() {
		o.Mode = d.Mode
	}
	if o.AggregationIndex == "" {
		o.AggregationIndex = d.AggregationIndex
	}
	if o.RetrievalTopK <= 0 {
		o.RetrievalTopK = d.RetrievalTopK
	}
	if o.RerankTopK <= 0 {
		o.RerankTopK = d.RerankTopK
	}
	if !o.FallbackPolicy.IsValid() {
		o.FallbackPolicy = d.FallbackPolicy
	}
	if o.HistoryTurns < 0 {
		o.HistoryTurns = 0
	}
	return o
}
