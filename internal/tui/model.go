// Package tui provides an interactive question-and-answer session over
// the indexed documents.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docubot/internal/domain"
)

// AnswerPort is the TUI-facing subset of the docubot service.
type AnswerPort interface {
	Answer(ctx context.Context, question string) (string, []domain.ScoredRecord, error)
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	service  AnswerPort
	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool
}

// answerMsg carries a completed answer back into the update loop.
type answerMsg struct {
	question string
	answer   string
	sources  []domain.ScoredRecord
	err      error
}

// New creates a new TUI model instance.
func New(service AnswerPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, status: "Ready. Ask about your documents."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - ah
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		return m, nil
	case answerMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("Answered %q", msg.question)
		m.viewport.SetContent(renderAnswer(msg.answer, msg.sources))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.input.SetValue("")
				m.status = "Thinking..."
				return m, m.askCmd(q)
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd runs the answer cycle off the update loop.
func (m Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		answer, sources, err := m.service.Answer(context.Background(), question)
		return answerMsg{question: question, answer: answer, sources: sources, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("DocuBot")
	answer := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + answer + "\n" + input + "\n" + status
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func renderAnswer(answer string, sources []domain.ScoredRecord) string {
	if strings.TrimSpace(answer) == "" {
		return "No answer."
	}
	if len(sources) == 0 {
		return answer
	}
	names := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.Source]; ok {
			continue
		}
		seen[s.Source] = struct{}{}
		names = append(names, s.Source)
	}
	return answer + "\n\n" + sourceStyle.Render("Sources: "+strings.Join(names, ", "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
