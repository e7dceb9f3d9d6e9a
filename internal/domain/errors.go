package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals invalid caller input (e.g. an empty question).
	ErrValidation = errors.New("validation failed")
	// ErrPlanningFailed signals that no usable structured plan came out of the model.
	ErrPlanningFailed = errors.New("planning failed")
	// ErrExecutionFailed signals that the store rejected or failed a valid plan.
	ErrExecutionFailed = errors.New("plan execution failed")
	// ErrRetrievalFailed signals a store failure during hybrid search.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrGenerationFailed signals that no answer could be generated. Request-fatal.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit (upstream or local).
	ErrRateLimited = errors.New("rate limited")
	// ErrStreamClosed is returned by a stream read after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// ProviderError carries the upstream HTTP status of a model provider failure.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error %d: %s: %s", e.StatusCode, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("provider error: %s: %s", e.Message, e.Err.Error())
}

// Unwrap exposes the wrapped sentinel, plus ErrRateLimited for HTTP 429.
func (e *ProviderError) Unwrap() []error {
	if e.StatusCode == 429 {
		return []error{e.Err, ErrRateLimited}
	}
	return []error{e.Err}
}
