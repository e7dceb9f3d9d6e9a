package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/db"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

type searchResponseDTO struct {
	Hits struct {
		Hits []hitDTO `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

type hitDTO struct {
	Score  *json.Number   `json:"_score"`
	Source map[string]any `json:"_source"`
}

// Search runs a raw search body against index. Numbers in sources decode
// as json.Number so integer ids survive without float rounding.
func (s *Store) Search(ctx context.Context, index string, body []byte) (record.SearchResponse, error) {
	if index == "" {
		index = s.index
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return record.SearchResponse{}, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return record.SearchResponse{}, &db.Error{Op: db.OpSearch, Err: responseError(res)}
	}

	var dto searchResponseDTO
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&dto); err != nil {
		return record.SearchResponse{}, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}

	hits := make([]record.Record, 0, len(dto.Hits.Hits))
	for _, h := range dto.Hits.Hits {
		hits = append(hits, record.FromSource(score(h.Score), h.Source))
	}

	s.logger.Debug("Search done",
		zap.String("index", index),
		zap.Int("hits", len(hits)),
		zap.Bool("aggregations", len(dto.Aggregations) > 0),
	)

	return record.SearchResponse{Hits: hits, Aggregations: dto.Aggregations}, nil
}

func score(n *json.Number) float64 {
	if n == nil {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func responseError(res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Type != "" {
		return fmt.Errorf("status %d: %s: %s", res.StatusCode, payload.Error.Type, payload.Error.Reason)
	}
	return fmt.Errorf("status %d: %s", res.StatusCode, bytes.TrimSpace(raw))
}
