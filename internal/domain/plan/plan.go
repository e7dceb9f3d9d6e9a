// Package plan models a structured search/aggregation query authored by a model.
//
// The plan is kept as an ordered list of top-level members holding raw JSON.
// Only the presence of "aggs" and the "size" default are checked; every other
// clause is forwarded to the store byte-for-byte, in the order the model wrote it.
package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Top-level keys the pipeline knows about.
const (
	KeyAggs  = "aggs"
	KeySize  = "size"
	KeyQuery = "query"
)

var (
	// ErrInvalidJSON signals text that is not a single JSON value.
	ErrInvalidJSON = errors.New("invalid plan json")
	// ErrNotObject signals a JSON value that is not an object.
	ErrNotObject = errors.New("plan is not a json object")
	// ErrMissingAggs signals a plan without a non-empty "aggs" object.
	ErrMissingAggs = errors.New("plan has no aggs")
)

type member struct {
	key   string
	value json.RawMessage
}

// Plan is a validated query body. The zero value is not a valid plan.
type Plan struct {
	members []member
}

// Parse decodes and validates a plan. A missing "size" is set to 0;
// an explicit "size" is left untouched.
func Parse(data []byte) (Plan, error) {
	members, err := decodeObject(data)
	if err != nil {
		return Plan{}, err
	}
	p := Plan{members: members}

	if _, ok := p.Get(KeySize); !ok {
		p.members = append(p.members, member{key: KeySize, value: json.RawMessage("0")})
	}

	aggs, ok := p.Get(KeyAggs)
	if !ok {
		return Plan{}, ErrMissingAggs
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(aggs, &inner); err != nil || len(inner) == 0 {
		return Plan{}, ErrMissingAggs
	}

	return p, nil
}

// Get returns the raw JSON of a top-level member.
func (p Plan) Get(key string) (json.RawMessage, bool) {
	for _, m := range p.members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// Keys returns the top-level keys in document order.
func (p Plan) Keys() []string {
	keys := make([]string, len(p.members))
	for i, m := range p.members {
		keys[i] = m.key
	}
	return keys
}

// Size returns the integer "size", or 0 when it is not an integer.
func (p Plan) Size() int {
	raw, ok := p.Get(KeySize)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil {
		return 0
	}
	return n
}

// AggNames returns the names of the top-level aggregations.
func (p Plan) AggNames() []string {
	raw, ok := p.Get(KeyAggs)
	if !ok {
		return nil
	}
	members, err := decodeObject(raw)
	if err != nil {
		return nil
	}
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.key
	}
	return names
}

// IsZero reports whether p is the zero value.
func (p Plan) IsZero() bool { return len(p.members) == 0 }

// MarshalJSON emits the members in their original order, compacted.
func (p Plan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range p.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", m.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, m.value); err != nil {
			return nil, fmt.Errorf("compact %q: %w", m.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeObject reads one JSON object, keeping member order. A repeated key
// keeps its first position and its last value. Trailing data is an error.
func decodeObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// Still must be valid JSON to be reported as "not an object".
		if !json.Valid(data) {
			return nil, ErrInvalidJSON
		}
		return nil, ErrNotObject
	}

	var members []member
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, ErrInvalidJSON
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		if i, seen := index[key]; seen {
			members[i].value = raw
			continue
		}
		index[key] = len(members)
		members = append(members, member{key: key, value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	return members, nil
}
