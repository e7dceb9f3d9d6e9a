// Package tui is the terminal chat client: one input line, a scrolling
// transcript and answers that render as they stream in.
package tui

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	ragbot "github.com/kailas-cloud/ragbot/pkg/sdk"
)

// Fragments is an open answer stream.
type Fragments interface {
	Next() (string, error)
	Close() error
}

// OpenFunc starts answering a question.
type OpenFunc func(ctx context.Context, question string, history []ragbot.Turn) (Fragments, error)

// Stream messages carry the turn they belong to, so late results from a
// canceled turn are dropped.
type (
	openedMsg struct {
		turn   int
		stream Fragments
	}
	fragmentMsg struct {
		turn int
		text string
	}
	doneMsg struct{ turn int }
	errMsg  struct {
		turn int
		err  error
	}
)

// Model is the Bubble Tea model for the chat client.
type Model struct {
	open     OpenFunc
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history  []ragbot.Turn
	question string
	partial  string
	status   string
	waiting  bool
	ready    bool
	turn     int

	stream Fragments
	cancel context.CancelFunc
}

// New creates a chat model. server is shown in the header.
func New(open OpenFunc, server string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		open:     open,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Connected to " + server,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// History returns the finished turns.
func (m Model) History() []ragbot.Turn { return m.history }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 1 + 1 + ih + th // header, status
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.stop()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.waiting {
				m.stop()
				m.finish("Canceled")
				return m, nil
			}
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			return m, m.ask(q)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case openedMsg:
		if !m.current(msg.turn) {
			_ = msg.stream.Close()
			return m, nil
		}
		m.stream = msg.stream
		return m, next(m.turn, m.stream)

	case fragmentMsg:
		if !m.current(msg.turn) {
			return m, nil
		}
		m.partial += msg.text
		m.refresh()
		return m, next(m.turn, m.stream)

	case doneMsg:
		if m.current(msg.turn) {
			m.finish("Done")
		}
		return m, nil

	case errMsg:
		if m.current(msg.turn) {
			m.finish("Error: " + msg.err.Error())
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ask(q string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.turn++
	m.question = q
	m.partial = ""
	m.waiting = true
	m.status = "Thinking"
	m.refresh()

	history := append([]ragbot.Turn(nil), m.history...)
	open, turn := m.open, m.turn
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		stream, err := open(ctx, q, history)
		if err != nil {
			return errMsg{turn: turn, err: err}
		}
		return openedMsg{turn: turn, stream: stream}
	})
}

func (m Model) current(turn int) bool { return m.waiting && turn == m.turn }

func next(turn int, s Fragments) tea.Cmd {
	return func() tea.Msg {
		frag, err := s.Next()
		if errors.Is(err, io.EOF) {
			return doneMsg{turn: turn}
		}
		if err != nil {
			return errMsg{turn: turn, err: err}
		}
		return fragmentMsg{turn: turn, text: frag}
	}
}

// finish records the turn, keeping a partial answer if the stream broke.
func (m *Model) finish(status string) {
	m.history = append(m.history, ragbot.Turn{Role: ragbot.RoleUser, Content: m.question})
	if m.partial != "" {
		m.history = append(m.history, ragbot.Turn{Role: ragbot.RoleAssistant, Content: m.partial})
	}
	m.stop()
	m.question, m.partial = "", ""
	m.waiting = false
	m.status = status
	m.refresh()
}

func (m *Model) stop() {
	if m.stream != nil {
		_ = m.stream.Close()
		m.stream = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("RAGBot")
	status := statusStyle.Render(m.status)
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 && !m.waiting {
		return hintStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for _, t := range m.history {
		writeTurn(&b, t.Role, t.Content)
	}
	if m.waiting {
		writeTurn(&b, ragbot.RoleUser, m.question)
		writeTurn(&b, ragbot.RoleAssistant, m.partial)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeTurn(b *strings.Builder, role ragbot.Role, content string) {
	if role == ragbot.RoleUser {
		b.WriteString(userStyle.Render("You: "))
	} else {
		b.WriteString(botStyle.Render("RAGBot: "))
	}
	b.WriteString(content)
	b.WriteString("\n\n")
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
