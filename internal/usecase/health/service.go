package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the document store is unusable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckStore     = "store"
	CheckEmbedding = "embedding"
	CheckCache     = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StoreChecker
	embedding EmbeddingChecker
	cache     Pinger
	logger    *zap.Logger
}

// New creates a Service. embedding and cache can be nil.
func New(store StoreChecker, embedding EmbeddingChecker, cache Pinger, logger *zap.Logger) *Service {
	return &Service{store: store, embedding: embedding, cache: cache, logger: logger}
}

// Check pings every dependency. The store check also ensures the passage
// index exists, so a fresh cluster is schema-ready after the first probe.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[CheckStore] = s.checkStore(ctx)

	if s.embedding != nil {
		checks[CheckEmbedding] = s.result(CheckEmbedding, s.embedding.HealthCheck(ctx))
	}
	if s.cache != nil {
		checks[CheckCache] = s.result(CheckCache, s.cache.Ping(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[CheckStore] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) checkStore(ctx context.Context) CheckResult {
	if err := s.store.Ping(ctx); err != nil {
		return s.result(CheckStore, err)
	}
	created, err := s.store.EnsureIndex(ctx)
	if err != nil {
		return s.result(CheckStore, err)
	}
	if created {
		s.logger.Info("Passage index created")
	}
	return CheckOK
}

func (s *Service) result(name string, err error) CheckResult {
	if err != nil {
		s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
