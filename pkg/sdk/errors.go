package ragbot

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/ragbot/internal/domain"
)

// Sentinel errors. Use errors.Is() on any error returned by the Client.
var (
	ErrValidation             = domain.ErrValidation
	ErrRateLimited            = domain.ErrRateLimited
	ErrGenerationFailed       = domain.ErrGenerationFailed
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStreamClosed           = domain.ErrStreamClosed
	ErrUnauthorized           = errors.New("unauthorized")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("ragbot: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ragbot: http %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the response code to a sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		return ErrValidation
	case "unauthorized":
		return ErrUnauthorized
	case "rate_limited":
		return ErrRateLimited
	case "generation_failed":
		return ErrGenerationFailed
	case "embedding_provider_error":
		return ErrEmbeddingProviderError
	}
	return nil
}
