package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/metrics"
)

// Compile-time check: Generator implements domain.Generator.
var _ domain.Generator = (*Generator)(nil)

// DefaultTemperature is the sampling temperature for answers and plans.
const DefaultTemperature = 0.2

// GeneratorConfig holds the chat model settings.
type GeneratorConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// CompleteTimeout bounds single-shot completions. Streams follow the caller's context.
	CompleteTimeout time.Duration
}

// Generator is a chat completion provider using the OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generator.
func NewGenerator(client *openai.Client, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	return &Generator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.CompleteTimeout,
		logger:      logger,
	}
}

func (g *Generator) request(messages []domain.Message, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Stream:      stream,
	}
}

// Complete returns the whole assistant reply in one string.
func (g *Generator) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, g.request(messages, false))
	metrics.GenerationRequestDuration.WithLabelValues(g.model, "complete").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "complete", "error").Inc()
		return "", providerError(err, domain.ErrGenerationFailed)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "complete", "error").Inc()
		return "", fmt.Errorf("no choices in completion: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "complete", "success").Inc()
	g.logger.Debug("Completion done",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streamed completion. A failure to open is returned here;
// failures mid-stream surface from Recv.
func (g *Generator) Stream(ctx context.Context, messages []domain.Message) (domain.FragmentStream, error) {
	start := time.Now()
	s, err := g.client.CreateChatCompletionStream(ctx, g.request(messages, true))
	metrics.GenerationRequestDuration.WithLabelValues(g.model, "stream").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "stream", "error").Inc()
		return nil, providerError(err, domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "stream", "success").Inc()
	return &fragmentStream{stream: s, model: g.model}, nil
}

// fragmentStream adapts a go-openai stream to domain.FragmentStream.
type fragmentStream struct {
	stream    *openai.ChatCompletionStream
	model     string
	closeOnce sync.Once
	closeErr  error
}

// Recv returns the next content delta, possibly empty (role-only or usage chunks).
func (f *fragmentStream) Recv() (string, error) {
	resp, err := f.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", providerError(err, domain.ErrGenerationFailed)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	delta := resp.Choices[0].Delta.Content
	if delta != "" {
		metrics.GenerationFragmentsTotal.WithLabelValues(f.model).Inc()
	}
	return delta, nil
}

func (f *fragmentStream) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.stream.Close()
	})
	return f.closeErr
}
