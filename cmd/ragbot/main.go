package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/ragbot/internal/config"
	"github.com/kailas-cloud/ragbot/internal/db/elastic"
	dbValkey "github.com/kailas-cloud/ragbot/internal/db/valkey"
	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/pipeline/mode"
	logpkg "github.com/kailas-cloud/ragbot/internal/logger"
	"github.com/kailas-cloud/ragbot/internal/metrics"
	"github.com/kailas-cloud/ragbot/internal/repository/embcache"
	"github.com/kailas-cloud/ragbot/internal/tracing"
	chiTransport "github.com/kailas-cloud/ragbot/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragbot/internal/transport/openai"
	answeruc "github.com/kailas-cloud/ragbot/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/ragbot/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragbot/internal/usecase/health"
	planneruc "github.com/kailas-cloud/ragbot/internal/usecase/planner"
	retrievaluc "github.com/kailas-cloud/ragbot/internal/usecase/retrieval"
	"github.com/kailas-cloud/ragbot/internal/version"
)

const providerName = "openai"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragbot API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("es_addresses", cfg.Elasticsearch.Addresses),
		zap.String("mode", cfg.Pipeline.Mode),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.OTLPEndpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.Version,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}

	store, err := elastic.NewStore(elastic.Config{
		Addresses:          cfg.Elasticsearch.Addresses,
		Username:           cfg.Elasticsearch.Username,
		Password:           cfg.Elasticsearch.Password,
		Index:              cfg.Elasticsearch.Index,
		Dimensions:         elastic.Dimensions(cfg.OpenAI.EmbedModel, cfg.OpenAI.Dimensions),
		InsecureSkipVerify: cfg.Elasticsearch.InsecureSkipVerify,
		RequestTimeout:     cfg.Elasticsearch.RequestTimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}

	client := openaiTransport.NewClient(openaiTransport.ClientConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	generator := openaiTransport.NewGenerator(client, openaiTransport.GeneratorConfig{
		Model:           cfg.OpenAI.GenModel,
		Temperature:     cfg.OpenAI.Temperature,
		MaxTokens:       cfg.OpenAI.MaxTokens,
		CompleteTimeout: cfg.OpenAI.RequestTimeout(),
	}, logger)

	// Optional embedding cache
	var cache *dbValkey.Store
	if cfg.Cache.Enabled() {
		cache, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	embedder := buildEmbedder(cfg, client, cache, logger)
	logger.Info("Embedder created",
		zap.String("provider", providerName),
		zap.String("model", cfg.OpenAI.EmbedModel),
		zap.Bool("cached", cache != nil),
	)

	semantic := cfg.Pipeline.Semantic == nil || *cfg.Pipeline.Semantic
	retriever := retrievaluc.New(store, embedder, cfg.Elasticsearch.Index, semantic, logger)
	retrievalTopK := cfg.Pipeline.RetrievalTopK
	if cfg.Pipeline.BroadRecall {
		retrievalTopK = retrievaluc.BroadRecall
	}
	logger.Info("Retriever created",
		zap.String("index", cfg.Elasticsearch.Index),
		zap.Bool("semantic", retriever.Semantic()),
		zap.Int("top_k", retrievalTopK),
	)
	planner := planneruc.New(generator, logger)

	answerSvc := answeruc.New(planner, store, retriever, embedder, generator, answeruc.Options{
		Mode:               mode.Mode(cfg.Pipeline.Mode),
		AggregationIndex:   cfg.Elasticsearch.AggregationIndex,
		RetrievalTopK:      retrievalTopK,
		RerankTopK:         cfg.Pipeline.RerankTopK,
		MMRLambda:          cfg.Pipeline.Lambda(),
		BackfillEmbeddings: cfg.Pipeline.BackfillEmbeddings,
		HistoryTurns:       cfg.Pipeline.History(),
		FallbackPolicy:     answeruc.FallbackPolicy(cfg.Pipeline.FallbackPolicy),
	}, logger)

	// Pass nil interface (not typed nil pointer) when the cache is off.
	var cachePinger healthuc.Pinger
	if cache != nil {
		cachePinger = cache
	}
	healthSvc := healthuc.New(store, embedder, cachePinger, logger)

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	server := chiTransport.NewServer(answerSvc, healthSvc, logger)
	handler := server.Router(chiTransport.RouterConfig{
		APIKeys: cfg.Auth.APIKeys,
		Limiter: limiter,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	cfg config.Config,
	client *openai.Client,
	cache *dbValkey.Store,
	logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(client, openaiTransport.EmbedderConfig{
		Model:      cfg.OpenAI.EmbedModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Provider:   providerName,
		Timeout:    cfg.OpenAI.RequestTimeout(),
	}, logger)

	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, cfg.OpenAI.EmbedModel, cfg.Cache.TTL(), metrics.EmbeddingCacheTotal, logger)
	}

	// Pass nil interface (not typed nil pointer) when unlimited.
	var limiter embeddinguc.Limiter
	if cfg.OpenAI.EmbedRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OpenAI.EmbedRPS), 1)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, providerName, cfg.OpenAI.EmbedModel, limiter, logger)
}
