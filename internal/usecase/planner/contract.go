package planner

import (
	"context"

	"github.com/kailas-cloud/ragbot/internal/domain"
)

// Completer produces a single, fully materialized chat completion.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}
