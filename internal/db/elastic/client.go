// Package elastic is the Elasticsearch document store: search, ping and
// retrieval index bootstrap. It never writes documents.
package elastic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/db"
)

// DefaultRequestTimeout bounds a single store call when the config leaves it unset.
const DefaultRequestTimeout = 60 * time.Second

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addresses          []string
	Username           string
	Password           string
	Index              string
	Dimensions         int
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
}

// Store implements the document store over go-elasticsearch.
type Store struct {
	es      *elasticsearch.Client
	index   string
	dims    int
	timeout time.Duration
	logger  *zap.Logger
}

// NewStore creates an Elasticsearch store. Retries are disabled: callers
// decide how to degrade on failure.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("addresses is required")
	}
	if cfg.Index == "" {
		return nil, errors.New("index is required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 16,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed dev clusters
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Store{
		es:      es,
		index:   cfg.Index,
		dims:    cfg.Dimensions,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Index returns the retrieval index name.
func (s *Store) Index() string { return s.index }

// Ping checks cluster connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	return nil
}
