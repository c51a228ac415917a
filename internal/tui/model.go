package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/stream"
)

// ChatPort is the TUI-facing subset of the RAG service.
type ChatPort interface {
	AskStream(ctx context.Context, session, question string) (<-chan stream.Event, error)
}

type turn struct {
	question string
	answer   string
	final    bool
	sources  []domain.Source
	failed   string
}

type (
	streamStartedMsg struct {
		events <-chan stream.Event
		cancel context.CancelFunc
		err    error
	}
	eventMsg struct {
		ev stream.Event
		ok bool
	}
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	service  ChatPort
	session  string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	summary string
	status  string
	turns   []turn
	events  <-chan stream.Event
	cancel  context.CancelFunc
	started time.Time
	busy    bool
	ready   bool
}

// New creates a chat model. summary is shown under the title.
func New(service ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the docs and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		service:  service,
		session:  uuid.NewString(),
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Docs indexed. Ask a question.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.input.Width = max(10, msg.Width-6)
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(20, msg.Width-6)),
		)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case tea.KeyEsc:
			if m.busy && m.cancel != nil {
				m.cancel()
				m.status = "Cancelled."
				m.stop()
				m.refresh()
				return m, nil
			}
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.turns = append(m.turns, turn{question: q})
			m.busy = true
			m.started = time.Now()
			m.status = "Searching the docs..."
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case streamStartedMsg:
		if msg.err != nil {
			m.current().failed = msg.err.Error()
			m.status = "Error: " + msg.err.Error()
			m.stop()
			m.refresh()
			return m, nil
		}
		m.events, m.cancel = msg.events, msg.cancel
		m.status = "Answering..."
		return m, waitForEvent(m.events)

	case eventMsg:
		if !msg.ok {
			m.stop()
			m.refresh()
			return m, nil
		}
		return m.handleEvent(msg.ev)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEvent(ev stream.Event) (tea.Model, tea.Cmd) {
	t := m.current()
	switch ev.Type {
	case stream.EventReplace:
		t.answer = ev.Replace
		t.final = !ev.Partial
	case stream.EventDone:
		t.sources = ev.Sources
		m.status = fmt.Sprintf("Answered in %s.", time.Since(m.started).Round(100*time.Millisecond))
		m.stop()
		m.refresh()
		return m, nil
	case stream.EventError:
		t.failed = ev.Error
		m.status = "Error: " + ev.Error
		m.stop()
		m.refresh()
		return m, nil
	}
	m.refresh()
	return m, waitForEvent(m.events)
}

func (m Model) ask(q string) tea.Cmd {
	service, session := m.service, m.session
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		events, err := service.AskStream(ctx, session, q)
		if err != nil {
			cancel()
			return streamStartedMsg{err: err}
		}
		return streamStartedMsg{events: events, cancel: cancel}
	}
}

func waitForEvent(ch <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{ev: ev, ok: ok}
	}
}

func (m *Model) current() *turn { return &m.turns[len(m.turns)-1] }

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.busy = false
	m.events = nil
	m.cancel = nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Docs QA")
	summary := summaryStyle.Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(questionStyle.Render("> " + t.question))
		b.WriteString("\n\n")
		b.WriteString(m.renderAnswer(t))
		if len(t.sources) > 0 {
			var refs []string
			for _, s := range t.sources {
				refs = append(refs, s.Project+"/"+s.File)
			}
			b.WriteString("\n")
			b.WriteString(sourcesStyle.Render("sources: " + strings.Join(refs, ", ")))
		}
		if t.failed != "" {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(t.failed))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderAnswer styles the final answer as markdown. Previews stay plain so their fences do
// not flicker between styled and unstyled.
func (m Model) renderAnswer(t turn) string {
	if !t.final || m.renderer == nil {
		return t.answer
	}
	out, err := m.renderer.Render(t.answer)
	if err != nil {
		return t.answer
	}
	return strings.TrimRight(out, "\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourcesStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
