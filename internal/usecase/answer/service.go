// Package answer sequences planning, retrieval, reranking, packing and
// streamed generation for one question.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/conversation"
	"github.com/kailas-cloud/ragbot/internal/domain/plan"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
	"github.com/kailas-cloud/ragbot/internal/logger"
	"github.com/kailas-cloud/ragbot/internal/usecase/pack"
	"github.com/kailas-cloud/ragbot/internal/usecase/rerank"
)

// AggregationResult is an executed plan with the values the store computed.
type AggregationResult struct {
	Body         plan.Plan
	Aggregations json.RawMessage
}

// gathered is whatever context the first stages produced: an aggregation,
// reranked records, or nothing.
type gathered struct {
	aggregation *AggregationResult
	records     []record.Record
}

// Service is the answer orchestrator.
type Service struct {
	planner   Planner
	store     Searcher
	retriever Retriever
	embed     domain.Embedder
	llm       Streamer
	opts      Options
	logger    *zap.Logger
}

// New creates an answer service. retriever and embed may be nil: without a
// retriever planning failures answer from no context, without an embedder
// candidates keep store order.
func New(
	planner Planner, store Searcher, retriever Retriever, embed domain.Embedder,
	llm Streamer, opts Options, logger *zap.Logger,
) *Service {
	return &Service{
		planner:   planner,
		store:     store,
		retriever: retriever,
		embed:     embed,
		llm:       llm,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// Ask runs the pipeline and opens the answer stream. Only a generation
// failure is returned as an error; planning, execution and retrieval
// failures degrade to less (or no) context.
func (s *Service) Ask(ctx context.Context, q conversation.Query) (*Stream, error) {
	started := time.Now()
	ctx = ensureRequestID(ctx)
	log := logger.WithRequestID(ctx, s.logger)

	ctx, span := tracer().Start(ctx, "answer.Ask")
	span.SetAttributes(
		attribute.String("request_id", logger.RequestIDFromContext(ctx)),
		attribute.String("mode", string(s.opts.Mode)),
	)
	log.Info("Chat start",
		zap.Int("q_len", len(q.Question())),
		zap.String("q_preview", q.Preview(120)),
		zap.Int("history", len(q.History())),
		zap.String("mode", string(s.opts.Mode)),
	)

	got := s.gather(ctx, log, q.Question())
	passages := s.pack(ctx, log, got)

	_, run := beginStage(ctx, log, StagePrompting)
	messages := buildMessages(q, passages, s.opts.HistoryTurns, s.opts.FallbackPolicy)
	run.end(nil, zap.Int("messages", len(messages)), zap.Int("passages", len(passages)))

	upstream, err := s.llm.Stream(ctx, messages)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		log.Error("Stream open failed", zap.String("stage", string(StageAborted)), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	log.Info("Stream start", zap.String("stage", string(StageStreaming)))

	return newStream(upstream, log, span, started), nil
}

func (s *Service) gather(ctx context.Context, log *zap.Logger, question string) gathered {
	if s.opts.Mode.Plans() {
		p, ok := s.plan(ctx, log, question)
		if ok {
			domain.UsageFromContext(ctx).MarkPlanned()
			return gathered{aggregation: s.execute(ctx, log, p)}
		}
	}
	if s.opts.Mode.Retrieves() && s.retriever != nil {
		return gathered{records: s.retrieve(ctx, log, question)}
	}
	return gathered{}
}

func (s *Service) plan(ctx context.Context, log *zap.Logger, question string) (plan.Plan, bool) {
	ctx, run := beginStage(ctx, log, StagePlanning)
	p, err := s.planner.Plan(ctx, question)
	if err != nil {
		run.end(err)
		return plan.Plan{}, false
	}
	run.end(nil, zap.Strings("keys", p.Keys()))
	return p, true
}

// execute runs the plan. Any failure yields no aggregation; partial results
// are never surfaced.
func (s *Service) execute(ctx context.Context, log *zap.Logger, p plan.Plan) *AggregationResult {
	ctx, run := beginStage(ctx, log, StageExecutingPlan)

	body, err := p.MarshalJSON()
	if err != nil {
		run.end(fmt.Errorf("%w: %w", domain.ErrExecutionFailed, err))
		return nil
	}
	resp, err := s.store.Search(ctx, s.opts.AggregationIndex, body)
	if err != nil {
		run.end(fmt.Errorf("%w: %w", domain.ErrExecutionFailed, err), zap.String("index", s.opts.AggregationIndex))
		return nil
	}

	run.end(nil,
		zap.String("index", s.opts.AggregationIndex),
		zap.Int("size", p.Size()),
		zap.Any("summary", summarize(resp.Aggregations)),
	)
	return &AggregationResult{Body: p, Aggregations: resp.Aggregations}
}

func (s *Service) retrieve(ctx context.Context, log *zap.Logger, question string) []record.Record {
	ctx, run := beginStage(ctx, log, StageRetrieving)

	var vector []float32
	if s.embed != nil {
		res, err := s.embed.Embed(ctx, question)
		if err != nil {
			log.Warn("Query embedding failed, keeping store order", zap.Error(err))
		} else {
			domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)
			vector = res.Embedding
		}
	}

	candidates, err := s.retriever.RetrieveVector(ctx, question, vector, s.opts.RetrievalTopK)
	if err != nil {
		run.end(err)
		return nil
	}

	if len(vector) == 0 {
		out := candidates[:min(len(candidates), s.opts.RerankTopK)]
		run.end(nil, zap.Int("in", len(candidates)), zap.Int("out", len(out)), zap.Bool("reranked", false))
		return out
	}

	if s.opts.BackfillEmbeddings {
		s.backfill(ctx, log, candidates)
	}
	out := rerank.MMR(vector, candidates, s.opts.MMRLambda, s.opts.RerankTopK)
	run.end(nil, zap.Int("in", len(candidates)), zap.Int("out", len(out)), zap.Bool("reranked", true))
	return out
}

// backfill embeds candidates that came back without a stored vector, in one
// batch, so MMR can compare them. Failures leave them at similarity 0.
func (s *Service) backfill(ctx context.Context, log *zap.Logger, candidates []record.Record) {
	var idx []int
	var texts []string
	for i, r := range candidates {
		if r.HasEmbedding() {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, pack.Pack([]record.Record{r})[0].Content)
	}
	if len(texts) == 0 {
		return
	}

	res, err := domain.EmbedMany(ctx, s.embed, texts)
	if err != nil || len(res.Embeddings) != len(texts) {
		log.Warn("Embedding backfill failed", zap.Int("missing", len(texts)), zap.Error(err))
		return
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)
	for j, i := range idx {
		candidates[i].Embedding = res.Embeddings[j]
	}
	log.Debug("Embedding backfill done", zap.Int("embedded", len(texts)))
}

func (s *Service) pack(ctx context.Context, log *zap.Logger, got gathered) []pack.Passage {
	_, run := beginStage(ctx, log, StagePacking)

	if got.aggregation != nil {
		p, err := pack.Aggregation(got.aggregation.Body, got.aggregation.Aggregations)
		if err != nil {
			run.end(err)
			return nil
		}
		run.end(nil, zap.Int("passages", 1), zap.Bool("aggregation", true))
		return []pack.Passage{p}
	}

	passages := pack.Pack(got.records)
	run.end(nil, zap.Int("passages", len(passages)), zap.Bool("aggregation", false))
	return passages
}

// ensureRequestID keeps an upstream correlation id (the HTTP request id) or
// mints a short one.
func ensureRequestID(ctx context.Context) context.Context {
	if logger.RequestIDFromContext(ctx) != "-" {
		return ctx
	}
	return logger.ContextWithRequestID(ctx, uuid.NewString()[:8])
}

// summarize maps each top-level aggregation to its "value", or "obj" for
// bucketed results.
func summarize(raw json.RawMessage) map[string]any {
	var aggs map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &aggs) != nil {
		return nil
	}
	out := make(map[string]any, len(aggs))
	for name, v := range aggs {
		var single struct {
			Value *json.RawMessage `json:"value"`
		}
		if json.Unmarshal(v, &single) == nil && single.Value != nil {
			out[name] = string(*single.Value)
			continue
		}
		out[name] = "obj"
	}
	return out
}
