package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/metrics"
)

func testMessages() []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: "Be brief."},
		{Role: domain.RoleUser, Content: "What is 2+2?"},
	}
}

func TestGenerator_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			Stream      bool    `json:"stream"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o" || req.Temperature != 0.2 || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "What is 2+2?" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "4"}}},
		})
	})

	g := NewGenerator(client, GeneratorConfig{Model: "gpt-4o", Temperature: DefaultTemperature}, zap.NewNop())

	out, err := g.Complete(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "4" {
		t.Errorf("got %q, want %q", out, "4")
	}
}

func TestGenerator_CompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "x", "choices": []any{}})
	})

	g := NewGenerator(client, GeneratorConfig{Model: "gpt-4o"}, zap.NewNop())
	if _, err := g.Complete(context.Background(), testMessages()); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_CompleteRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, apiError("slow down", "rate_limit_error"))
	})

	g := NewGenerator(client, GeneratorConfig{Model: "gpt-4o"}, zap.NewNop())
	_, err := g.Complete(context.Background(), testMessages())
	if !errors.Is(err, domain.ErrGenerationFailed) || !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected generation failure and rate limit, got %v", err)
	}
}

func TestGenerator_Stream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected stream=true")
		}
		writeSSE(w, []string{"", "Total ", "sales ", "were 4200."}, true)
	})

	g := NewGenerator(client, GeneratorConfig{Model: "stream-model"}, zap.NewNop())
	before := testutil.ToFloat64(metrics.GenerationFragmentsTotal.WithLabelValues("stream-model"))

	s, err := g.Stream(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	var got []string
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected recv error: %v", err)
		}
		got = append(got, frag)
	}

	want := []string{"", "Total ", "sales ", "were 4200."}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("fragments = %q, want %q", got, want)
	}
	if d := testutil.ToFloat64(metrics.GenerationFragmentsTotal.WithLabelValues("stream-model")) - before; d != 3 {
		t.Errorf("fragment counter delta = %v, want 3", d)
	}
}

func TestGenerator_StreamOpenFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, apiError("upstream exploded", "server_error"))
	})

	g := NewGenerator(client, GeneratorConfig{Model: "gpt-4o"}, zap.NewNop())
	s, err := g.Stream(context.Background(), testMessages())
	if s != nil {
		t.Error("expected nil stream on open failure")
	}
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected provider error with status 500, got %v", err)
	}
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_StreamMidError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w, []string{"partial"}, false)
		fmt.Fprint(w, `data: {"error":{"message":"overloaded","type":"server_error"}}`+"\n\n")
	})

	g := NewGenerator(client, GeneratorConfig{Model: "gpt-4o"}, zap.NewNop())
	s, err := g.Stream(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	frag, err := s.Recv()
	if err != nil || frag != "partial" {
		t.Fatalf("first fragment = %q, %v", frag, err)
	}
	if _, err := s.Recv(); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed mid-stream, got %v", err)
	}
}

func TestGenerator_StreamCloseIdempotent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w, []string{"a", "b"}, true)
	})

	g := NewGenerator(client, GeneratorConfig{Model: "gpt-4o"}, zap.NewNop())
	s, err := g.Stream(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
