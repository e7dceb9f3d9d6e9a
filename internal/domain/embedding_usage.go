package domain

import "context"

type requestUsageKey struct{}

// RequestUsage collects model usage for a single question.
// The HTTP handler puts a pointer into the context before calling the pipeline;
// the pipeline writes to it; the handler reads it for response headers before streaming.
type RequestUsage struct {
	EmbeddingTokens int
	Embedded        bool // true if the query was embedded, even on a cache hit with 0 tokens
	Planned         bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, requestUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(requestUsageKey{}).(*RequestUsage)
	return u
}

// AddEmbeddingTokens records tokens consumed by query embedding.
func (u *RequestUsage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.Embedded = true
	}
}

// MarkPlanned records that a structured plan was produced and executed.
func (u *RequestUsage) MarkPlanned() {
	if u != nil {
		u.Planned = true
	}
}
