package health

import "context"

// StoreChecker checks the document store and makes sure the passage index exists.
type StoreChecker interface {
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context) (created bool, err error)
}

// Pinger checks a dependency's availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
