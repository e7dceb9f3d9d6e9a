// Package chi is the HTTP surface: the streamed chat endpoint, health and
// metrics, plus the middleware chain in front of them.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/conversation"
	logpkg "github.com/kailas-cloud/ragbot/internal/logger"
	"github.com/kailas-cloud/ragbot/internal/metrics"
	"github.com/kailas-cloud/ragbot/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/ragbot/internal/usecase/health"
)

// maxBodyBytes caps the chat request body.
const maxBodyBytes = 1 << 20

// Answerer opens an answer stream for a question.
type Answerer interface {
	Ask(ctx context.Context, q conversation.Query) (*answer.Stream, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	answer Answerer
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(answer Answerer, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{answer: answer, health: health, logger: logger}
}

// RouterConfig holds the middleware settings.
type RouterConfig struct {
	APIKeys []string
	// Limiter caps inbound chat requests; nil disables limiting.
	Limiter *rate.Limiter
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(RateLimitMiddleware(cfg.Limiter))
	r.Use(metrics.Middleware())

	r.Post("/api/chat", s.Chat)
	r.Get("/api/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// ChatMessage is one prior turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history,omitempty"`
}

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Chat handles POST /api/chat. The answer is streamed as plain text, one
// flush per fragment. Failures before the first fragment get a JSON error;
// after that the status is already sent and the body just ends.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	log := logpkg.FromContext(r.Context())

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	history := make([]domain.Message, len(req.History))
	for i, m := range req.History {
		history[i] = domain.Message{Role: domain.Role(m.Role), Content: m.Content}
	}
	q, err := conversation.NewQuery(req.Query, history)
	if err != nil {
		handleDomainError(w, log, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())

	stream, err := s.answer.Ask(ctx, q)
	if err != nil {
		handleDomainError(w, log, err)
		return
	}
	defer func() { _ = stream.Close() }()

	first, err := stream.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		handleDomainError(w, log, err)
		return
	}

	setUsageHeaders(w, usage)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	frag := first
	for err == nil {
		if _, werr := io.WriteString(w, frag); werr != nil {
			log.Info("Client went away", zap.Error(werr))
			return
		}
		_ = rc.Flush()
		frag, err = stream.Next()
	}
	switch {
	case errors.Is(err, io.EOF):
	case errors.Is(err, domain.ErrStreamClosed):
		log.Info("Client went away", zap.Error(err))
	default:
		log.Warn("Answer stream ended early", zap.Error(err))
	}
}

// HealthCheck handles GET /api/health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage == nil {
		return
	}
	w.Header().Set("X-Answer-Planned", strconv.FormatBool(usage.Planned))
	if usage.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
}
