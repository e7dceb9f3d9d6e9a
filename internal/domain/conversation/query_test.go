package conversation

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/ragbot/internal/domain"
)

func TestNewQuery_RejectsBlankQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := NewQuery(q, nil)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("NewQuery(%q): expected ErrValidation, got %v", q, err)
		}
	}
}

func TestNewQuery_RejectsUnknownRole(t *testing.T) {
	_, err := NewQuery("hi", []domain.Message{{Role: "tool", Content: "x"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestQuery_HistoryIsCopied(t *testing.T) {
	hist := []domain.Message{{Role: domain.RoleUser, Content: "first"}}
	q, err := NewQuery("second", hist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hist[0].Content = "mutated"
	if got := q.History()[0].Content; got != "first" {
		t.Errorf("history leaked caller mutation: %q", got)
	}

	h := q.History()
	h[0].Content = "mutated again"
	if got := q.History()[0].Content; got != "first" {
		t.Errorf("History() returned shared slice: %q", got)
	}
}

func TestQuery_RecentHistory(t *testing.T) {
	hist := []domain.Message{
		{Role: domain.RoleUser, Content: "1"},
		{Role: domain.RoleAssistant, Content: "2"},
		{Role: domain.RoleUser, Content: "3"},
	}
	q, _ := NewQuery("q", hist)

	got := q.RecentHistory(2)
	if len(got) != 2 || got[0].Content != "2" || got[1].Content != "3" {
		t.Errorf("RecentHistory(2) = %v", got)
	}
	if len(q.RecentHistory(10)) != 3 {
		t.Error("RecentHistory larger than history should return all turns")
	}
	if q.RecentHistory(0) != nil {
		t.Error("RecentHistory(0) should be nil")
	}
}

func TestQuery_Preview(t *testing.T) {
	q, _ := NewQuery("line one\nline two", nil)
	if got := q.Preview(100); got != "line one line two" {
		t.Errorf("Preview = %q", got)
	}
	if got := q.Preview(4); got != "line" {
		t.Errorf("Preview(4) = %q", got)
	}
}
