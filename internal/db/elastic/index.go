package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/db"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
)

// Embedding dimensions of the known OpenAI models.
const (
	DimsLarge = 3072
	DimsSmall = 1536
)

// Dimensions returns the vector size for model. Known models win over the
// configured value; unknown models use configured, else DimsLarge.
func Dimensions(model string, configured int) int {
	switch model {
	case "text-embedding-3-large":
		return DimsLarge
	case "text-embedding-3-small", "text-embedding-ada-002":
		return DimsSmall
	}
	if configured > 0 {
		return configured
	}
	return DimsLarge
}

// EnsureIndex creates the retrieval index with its mapping when missing.
// It reports whether the index was created by this call.
func (s *Store) EnsureIndex(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
	default:
		return false, &db.Error{Op: db.OpIndexExists, Err: fmt.Errorf("status %d", res.StatusCode)}
	}

	body, err := json.Marshal(indexMapping(s.dims))
	if err != nil {
		return false, fmt.Errorf("marshal mapping: %w", err)
	}

	res, err = s.es.Indices.Create(
		s.index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, &db.Error{Op: db.OpIndexCreate, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		cause := responseError(res)
		// Another replica won the race.
		if res.StatusCode == http.StatusBadRequest && strings.Contains(cause.Error(), "resource_already_exists_exception") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexCreate, Err: cause}
	}

	s.logger.Info("Created retrieval index", zap.String("index", s.index), zap.Int("dims", s.dims))
	return true, nil
}

type mapping struct {
	Mappings struct {
		Properties map[string]property `json:"properties"`
	} `json:"mappings"`
}

type property struct {
	Type       string `json:"type"`
	Index      *bool  `json:"index,omitempty"`
	Dims       int    `json:"dims,omitempty"`
	Similarity string `json:"similarity,omitempty"`
}

func indexMapping(dims int) mapping {
	if dims <= 0 {
		dims = DimsLarge
	}
	var m mapping
	m.Mappings.Properties = map[string]property{
		"id":                  {Type: "keyword"},
		"title":               {Type: "text"},
		"content":             {Type: "text"},
		"url":                 {Type: "keyword", Index: boolPtr(false)},
		"source":              {Type: "keyword"},
		record.EmbeddingField: {Type: "dense_vector", Dims: dims, Index: boolPtr(true), Similarity: "cosine"},
		"created_at":          {Type: "date"},
	}
	return m
}

func boolPtr(b bool) *bool { return &b }
