// Package record holds one retrieved or aggregated unit of the corpus.
package record

import (
	"encoding/json"
	"strconv"
)

// EmbeddingField is the source field that carries the stored vector.
const EmbeddingField = "embedding"

// Record is a store hit. Fields holds the decoded source document without
// the embedding; numbers are json.Number when decoded by the store adapter.
type Record struct {
	Score     float64
	Embedding []float32
	Fields    map[string]any
}

// FromSource builds a record from a hit's source, lifting the embedding
// out of the field map. A malformed embedding is dropped.
func FromSource(score float64, source map[string]any) Record {
	fields := make(map[string]any, len(source))
	var emb []float32
	for k, v := range source {
		if k == EmbeddingField {
			emb = toVector(v)
			continue
		}
		fields[k] = v
	}
	return Record{Score: score, Embedding: emb, Fields: fields}
}

// Table returns the record's table tag, read from "table" then "_table".
func (r Record) Table() string {
	if s := r.String("table"); s != "" {
		return s
	}
	return r.String("_table")
}

// Get returns the raw field value.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// String returns a string field, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

// Map returns a nested object field, or nil.
func (r Record) Map(key string) map[string]any {
	m, _ := r.Fields[key].(map[string]any)
	return m
}

// HasEmbedding reports whether the record carries a vector.
func (r Record) HasEmbedding() bool { return len(r.Embedding) > 0 }

func toVector(v any) []float32 {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]float32, len(items))
	for i, item := range items {
		switch n := item.(type) {
		case float64:
			out[i] = float32(n)
		case json.Number:
			f, err := strconv.ParseFloat(n.String(), 32)
			if err != nil {
				return nil
			}
			out[i] = float32(f)
		default:
			return nil
		}
	}
	return out
}
