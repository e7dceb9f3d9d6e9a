package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragbot/internal/domain/pipeline/mode"
)

// Config holds the ragbot server configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Cache         CacheConfig         `yaml:"cache"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys means auth is off.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // bounds a whole streamed answer
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ElasticsearchConfig holds the document store settings.
type ElasticsearchConfig struct {
	Addresses          []string `yaml:"addresses"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	Index              string   `yaml:"index"`
	AggregationIndex   string   `yaml:"aggregation_index"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	RequestTimeoutSec  int      `yaml:"request_timeout_sec"`
}

// OpenAIConfig holds the embedding and generation provider settings.
type OpenAIConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	EmbedModel        string  `yaml:"embed_model"`
	GenModel          string  `yaml:"gen_model"`
	Dimensions        int     `yaml:"dimensions"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestTimeoutSec int     `yaml:"request_timeout_sec"` // single-shot calls only
	EmbedRPS          float64 `yaml:"embed_rps"`           // 0 = unlimited
}

// CacheConfig holds the query embedding cache settings. No addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PipelineConfig tunes the answer orchestrator.
type PipelineConfig struct {
	Mode               string   `yaml:"mode"` // auto, aggregate, retrieve
	RetrievalTopK      int      `yaml:"retrieval_top_k"`
	BroadRecall        bool     `yaml:"broad_recall"` // fetch every match, overrides retrieval_top_k
	RerankTopK         int      `yaml:"rerank_top_k"`
	MMRLambda          *float64 `yaml:"mmr_lambda"` // 0 = pure diversity
	Semantic           *bool    `yaml:"semantic"`
	BackfillEmbeddings bool     `yaml:"backfill_embeddings"`
	HistoryTurns       *int     `yaml:"history_turns"`   // 0 = no history
	FallbackPolicy     string   `yaml:"fallback_policy"` // dont_know, best_effort
}

// RateLimitConfig holds the inbound request limiter. Zero rps disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// TracingConfig holds OpenTelemetry export settings. No endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// Defaults.
const (
	DefaultIndex            = "kb_docs"
	DefaultAggregationIndex = "sales_transactions"
	DefaultEmbedModel       = "text-embedding-3-large"
	DefaultGenModel         = "gpt-4o"
	DefaultTemperature      = 0.2
	DefaultMMRLambda        = 0.7
	DefaultHistoryTurns     = 6
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	// Unset ${VAR} entries expand to "" and must not count as configured.
	c.Auth.APIKeys = nonBlank(c.Auth.APIKeys)
	c.Elasticsearch.Addresses = nonBlank(c.Elasticsearch.Addresses)
	c.Cache.Addrs = nonBlank(c.Cache.Addrs)

	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = DefaultIndex
	}
	if c.Elasticsearch.AggregationIndex == "" {
		c.Elasticsearch.AggregationIndex = DefaultAggregationIndex
	}
	if c.Elasticsearch.RequestTimeoutSec <= 0 {
		c.Elasticsearch.RequestTimeoutSec = 60
	}

	if c.OpenAI.EmbedModel == "" {
		c.OpenAI.EmbedModel = DefaultEmbedModel
	}
	if c.OpenAI.GenModel == "" {
		c.OpenAI.GenModel = DefaultGenModel
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = DefaultTemperature
	}
	if c.OpenAI.RequestTimeoutSec <= 0 {
		c.OpenAI.RequestTimeoutSec = 60
	}

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = string(mode.Auto)
	}
	if c.Pipeline.RetrievalTopK <= 0 {
		c.Pipeline.RetrievalTopK = 12
	}
	if c.Pipeline.RerankTopK <= 0 {
		c.Pipeline.RerankTopK = 8
	}
	if c.Pipeline.MMRLambda == nil {
		lambda := DefaultMMRLambda
		c.Pipeline.MMRLambda = &lambda
	}
	if c.Pipeline.Semantic == nil {
		on := true
		c.Pipeline.Semantic = &on
	}
	if c.Pipeline.HistoryTurns == nil {
		turns := DefaultHistoryTurns
		c.Pipeline.HistoryTurns = &turns
	}
	if c.Pipeline.FallbackPolicy == "" {
		c.Pipeline.FallbackPolicy = "dont_know"
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS) + 1
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "ragbot"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch.addresses is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be between 0 and 2, got %v", c.OpenAI.Temperature)
	}
	if !mode.Mode(c.Pipeline.Mode).IsValid() {
		return fmt.Errorf("pipeline.mode must be \"auto\", \"aggregate\" or \"retrieve\", got %q", c.Pipeline.Mode)
	}
	switch c.Pipeline.FallbackPolicy {
	case "dont_know", "best_effort":
	default:
		return fmt.Errorf(
			"pipeline.fallback_policy must be \"dont_know\" or \"best_effort\", got %q",
			c.Pipeline.FallbackPolicy,
		)
	}
	if l := c.Pipeline.MMRLambda; l != nil && (*l < 0 || *l > 1) {
		return fmt.Errorf("pipeline.mmr_lambda must be between 0 and 1, got %v", *l)
	}
	if n := c.Pipeline.HistoryTurns; n != nil && *n < 0 {
		return fmt.Errorf("pipeline.history_turns must not be negative, got %d", *n)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be at most 1, got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// RequestTimeout returns the Elasticsearch per-call timeout.
func (c ElasticsearchConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// RequestTimeout returns the bound for single-shot provider calls.
func (c OpenAIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// Enabled reports whether the embedding cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// Lambda returns the MMR relevance weight. An explicit 0 is kept.
func (c PipelineConfig) Lambda() float64 {
	if c.MMRLambda == nil {
		return DefaultMMRLambda
	}
	return *c.MMRLambda
}

// History returns how many prior turns go into the prompt. An explicit 0 is kept.
func (c PipelineConfig) History() int {
	if c.HistoryTurns == nil {
		return DefaultHistoryTurns
	}
	return *c.HistoryTurns
}

func nonBlank(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
