package answer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/metrics"
)

// Stage is one step of the per-question state machine.
type Stage string

// Pipeline stages.
const (
	StagePlanning      Stage = "planning"
	StageExecutingPlan Stage = "executing_plan"
	StageRetrieving    Stage = "retrieving"
	StagePacking       Stage = "packing"
	StagePrompting     Stage = "prompting"
	StageStreaming     Stage = "streaming"
	StageDone          Stage = "done"
	StageAborted       Stage = "aborted"
)

const tracerName = "github.com/kailas-cloud/ragbot/internal/usecase/answer"

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

// stageRun measures one stage: a child span, a duration observation and one log line.
type stageRun struct {
	stage Stage
	start time.Time
	span  trace.Span
	log   *zap.Logger
}

func beginStage(ctx context.Context, log *zap.Logger, stage Stage) (context.Context, *stageRun) {
	ctx, span := tracer().Start(ctx, "answer."+string(stage))
	return ctx, &stageRun{stage: stage, start: time.Now(), span: span, log: log}
}

// end closes the stage. A non-nil err marks the span as failed; the stage
// itself may still have recovered from it.
func (r *stageRun) end(err error, fields ...zap.Field) {
	elapsed := time.Since(r.start)
	metrics.PipelineStageDuration.WithLabelValues(string(r.stage)).Observe(elapsed.Seconds())

	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		fields = append(fields, zap.Error(err))
	}
	r.span.SetAttributes(attribute.Int64("elapsed_ms", elapsed.Milliseconds()))
	r.span.End()

	fields = append([]zap.Field{
		zap.String("stage", string(r.stage)),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
	}, fields...)
	if err != nil {
		r.log.Warn("Stage failed", fields...)
		return
	}
	r.log.Info("Stage done", fields...)
}
