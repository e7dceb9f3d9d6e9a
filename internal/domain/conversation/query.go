// Package conversation holds the caller-facing question and its chat history.
package conversation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragbot/internal/domain"
)

// Query is a natural-language question plus optional prior turns. Immutable.
type Query struct {
	question string
	history  []domain.Message
}

// NewQuery validates and creates a Query. The history slice is copied.
func NewQuery(question string, history []domain.Message) (Query, error) {
	if strings.TrimSpace(question) == "" {
		return Query{}, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}
	h := make([]domain.Message, 0, len(history))
	for i, m := range history {
		if !m.Role.IsValid() {
			return Query{}, fmt.Errorf("%w: history[%d]: unknown role %q", domain.ErrValidation, i, m.Role)
		}
		h = append(h, m)
	}
	return Query{question: question, history: h}, nil
}

// Question returns the raw question text.
func (q Query) Question() string { return q.question }

// History returns a copy of the prior turns, oldest first.
func (q Query) History() []domain.Message {
	out := make([]domain.Message, len(q.history))
	copy(out, q.history)
	return out
}

// RecentHistory returns at most n of the latest turns, oldest first.
func (q Query) RecentHistory(n int) []domain.Message {
	if n <= 0 || len(q.history) == 0 {
		return nil
	}
	start := len(q.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.Message, len(q.history)-start)
	copy(out, q.history[start:])
	return out
}

// Preview returns the question as a single line of at most limit runes.
func (q Query) Preview(limit int) string {
	return Preview(q.question, limit)
}

// Preview flattens newlines and cuts s to at most limit runes, for log lines.
func Preview(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit])
	}
	return s
}
