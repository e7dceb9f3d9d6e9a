package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/conversation"
	"github.com/kailas-cloud/ragbot/internal/domain/plan"
	"github.com/kailas-cloud/ragbot/internal/logger"
	"github.com/kailas-cloud/ragbot/internal/metrics"
)

const outputPreviewRunes = 200

// Service turns a question into a validated aggregation plan.
type Service struct {
	llm    Completer
	logger *zap.Logger
}

// New creates a planner service.
func New(llm Completer, logger *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Plan asks the model for a query body and validates it. Every failure wraps
// domain.ErrPlanningFailed; callers treat it as "no structured plan".
func (s *Service) Plan(ctx context.Context, question string) (plan.Plan, error) {
	l := logger.WithRequestID(ctx, s.logger)
	l.Info("Plan start", zap.String("question", conversation.Preview(question, 120)))

	out, err := s.llm.Complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: userPrompt(question)},
	})
	if err != nil {
		return plan.Plan{}, s.fail(l, metrics.PlanGenerateError, fmt.Errorf("%w: %w", domain.ErrPlanningFailed, err))
	}

	if strings.TrimSpace(out) == "" {
		return plan.Plan{}, s.fail(l, metrics.PlanEmptyOutput, fmt.Errorf("%w: empty model output", domain.ErrPlanningFailed))
	}
	l.Info("Plan raw output", zap.String("preview", conversation.Preview(out, outputPreviewRunes)))
	l.Debug("Plan raw output full", zap.String("output", out))

	candidate, ok := extractObject(out)
	if !ok {
		return plan.Plan{}, s.fail(l, metrics.PlanUnparseable, fmt.Errorf("%w: no json object in output", domain.ErrPlanningFailed))
	}

	p, err := plan.Parse([]byte(candidate))
	if err != nil {
		return plan.Plan{}, s.fail(l, outcomeOf(err), fmt.Errorf("%w: %w", domain.ErrPlanningFailed, err))
	}

	metrics.PlannerOutcomesTotal.WithLabelValues(metrics.PlanOK).Inc()
	l.Info("Plan ok", zap.Strings("keys", p.Keys()), zap.Strings("aggs", p.AggNames()))
	return p, nil
}

func (s *Service) fail(l *zap.Logger, outcome string, err error) error {
	metrics.PlannerOutcomesTotal.WithLabelValues(outcome).Inc()
	l.Warn("Plan failed", zap.String("outcome", outcome), zap.Error(err))
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, plan.ErrMissingAggs):
		return metrics.PlanMissingAggs
	case errors.Is(err, plan.ErrNotObject):
		return metrics.PlanNotObject
	default:
		return metrics.PlanUnparseable
	}
}
