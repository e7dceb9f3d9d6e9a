package planner

import (
	"context"
	"os"
	"testing"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type mockCompleter struct {
	out      string
	err      error
	messages []domain.Message
	calls    int
}

func (m *mockCompleter) Complete(_ context.Context, messages []domain.Message) (string, error) {
	m.calls++
	m.messages = messages
	return m.out, m.err
}
