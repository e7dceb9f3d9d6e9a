package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	ragbot "github.com/kailas-cloud/ragbot/pkg/sdk"
)

type fakeFragments struct {
	frags  []string
	err    error
	next   int
	closed int
}

func (f *fakeFragments) Next() (string, error) {
	if f.next < len(f.frags) {
		f.next++
		return f.frags[f.next-1], nil
	}
	if f.err != nil {
		return "", f.err
	}
	return "", io.EOF
}

func (f *fakeFragments) Close() error {
	f.closed++
	return nil
}

type fakeOpener struct {
	stream   *fakeFragments
	err      error
	question string
	history  []ragbot.Turn
}

func (o *fakeOpener) open(_ context.Context, question string, history []ragbot.Turn) (Fragments, error) {
	o.question, o.history = question, history
	if o.err != nil {
		return nil, o.err
	}
	return o.stream, nil
}

// drive runs cmd and feeds every resulting stream message back into the
// model until the turn settles. Spinner ticks are dropped.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("model did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case openedMsg, fragmentMsg, doneMsg, errMsg:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		}
	}
	return m
}

func newReadyModel(o *fakeOpener) Model {
	m := New(o.open, "http://localhost:8080")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func submit(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestAsk_StreamsIntoTranscript(t *testing.T) {
	stream := &fakeFragments{frags: []string{"Total ", "sales ", "were 4200."}}
	o := &fakeOpener{stream: stream}
	m, cmd := submit(t, newReadyModel(o), "  What were total sales?  ")

	if !m.waiting || m.input.Value() != "" {
		t.Fatal("expected waiting state with a cleared input")
	}
	m = drive(t, m, cmd)

	if o.question != "What were total sales?" {
		t.Errorf("question = %q", o.question)
	}
	h := m.History()
	if len(h) != 2 || h[1].Role != ragbot.RoleAssistant || h[1].Content != "Total sales were 4200." {
		t.Fatalf("unexpected history %+v", h)
	}
	if m.waiting || m.status != "Done" {
		t.Errorf("waiting=%v status=%q", m.waiting, m.status)
	}
	if stream.closed == 0 {
		t.Error("stream must be closed after the answer")
	}
	if !strings.Contains(m.renderTranscript(), "were 4200.") {
		t.Error("answer missing from transcript")
	}
}

func TestAsk_SendsPriorTurns(t *testing.T) {
	o := &fakeOpener{stream: &fakeFragments{frags: []string{"4200"}}}
	m, cmd := submit(t, newReadyModel(o), "sales this month?")
	m = drive(t, m, cmd)

	o.stream = &fakeFragments{frags: []string{"3900"}}
	m, cmd = submit(t, m, "and last month?")
	m = drive(t, m, cmd)

	if len(o.history) != 2 || o.history[0].Content != "sales this month?" || o.history[1].Content != "4200" {
		t.Errorf("unexpected history sent: %+v", o.history)
	}
	if len(m.History()) != 4 {
		t.Errorf("expected 4 turns, got %d", len(m.History()))
	}
}

func TestAsk_OpenError(t *testing.T) {
	o := &fakeOpener{err: ragbot.ErrRateLimited}
	m, cmd := submit(t, newReadyModel(o), "q")
	m = drive(t, m, cmd)

	if m.waiting || !strings.HasPrefix(m.status, "Error: ") {
		t.Errorf("waiting=%v status=%q", m.waiting, m.status)
	}
	if h := m.History(); len(h) != 1 || h[0].Role != ragbot.RoleUser {
		t.Errorf("expected only the user turn, got %+v", h)
	}
}

func TestAsk_BrokenStreamKeepsPartial(t *testing.T) {
	o := &fakeOpener{stream: &fakeFragments{frags: []string{"partial"}, err: errors.New("connection reset")}}
	m, cmd := submit(t, newReadyModel(o), "q")
	m = drive(t, m, cmd)

	h := m.History()
	if len(h) != 2 || h[1].Content != "partial" {
		t.Errorf("unexpected history %+v", h)
	}
	if !strings.Contains(m.status, "connection reset") {
		t.Errorf("status = %q", m.status)
	}
}

func TestEnter_IgnoredWhileWaitingOrBlank(t *testing.T) {
	o := &fakeOpener{stream: &fakeFragments{}}
	m := newReadyModel(o)

	if _, cmd := submit(t, m, "   "); cmd != nil {
		t.Error("blank input must not start a turn")
	}

	m, _ = submit(t, m, "first")
	if _, cmd := submit(t, m, "second"); cmd != nil {
		t.Error("a second question must wait for the first answer")
	}
}

func TestEsc_CancelsAndDropsLateFragments(t *testing.T) {
	stream := &fakeFragments{frags: []string{"late"}}
	o := &fakeOpener{stream: stream}
	m, _ := submit(t, newReadyModel(o), "q")

	next, _ := m.Update(openedMsg{turn: m.turn, stream: stream})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)

	if m.waiting || m.status != "Canceled" || stream.closed == 0 {
		t.Fatalf("waiting=%v status=%q closed=%d", m.waiting, m.status, stream.closed)
	}

	next, cmd := m.Update(fragmentMsg{turn: m.turn, text: "late"})
	m = next.(Model)
	if cmd != nil || strings.Contains(m.renderTranscript(), "late") {
		t.Error("fragments after cancel must be dropped")
	}
}

func TestCtrlC_Quits(t *testing.T) {
	m := newReadyModel(&fakeOpener{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestView(t *testing.T) {
	m := New((&fakeOpener{}).open, "http://localhost:8080")
	if m.View() != "Loading..." {
		t.Errorf("view before size = %q", m.View())
	}
	m = newReadyModel(&fakeOpener{})
	if v := m.View(); !strings.Contains(v, "RAGBot") || !strings.Contains(v, "No messages yet.") {
		t.Errorf("unexpected view:\n%s", v)
	}
}
