// Package terminal renders a quiz session as a Bubble Tea program.
package terminal

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"echoquiz-backend/internal/models"
	"echoquiz-backend/internal/quiz"
)

// Options configures the terminal model.
type Options struct {
	Title       string
	Description string
	NoColor     bool
	Timeout     time.Duration
}

// Model drives one local session. Every transition happens in Update, so the
// session keeps a single writer.
type Model struct {
	session   *quiz.Session
	generator quiz.Generator
	spinner   spinner.Model
	opts      Options
	width     int
}

// NewModel constructs a terminal model for a fresh session.
func NewModel(generator quiz.Generator, opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if !opts.NoColor {
		sp.Style = accentStyle
	}
	return Model{
		session:   quiz.NewSession(uuid.New()),
		generator: generator,
		spinner:   sp,
		opts:      opts,
	}
}

// Session exposes the current session state.
func (m Model) Session() *quiz.Session { return m.session }

// Init does nothing until the player starts the quiz.
func (m Model) Init() tea.Cmd { return nil }

// questionsMsg carries a generator result back to Update.
type questionsMsg struct {
	attempt   int
	questions []models.QuizQuestion
	err       error
}

func generate(gen quiz.Generator, attempt int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		questions, err := gen.GenerateQuestions(ctx)
		return questionsMsg{attempt: attempt, questions: questions, err: err}
	}
}

// Update handles key presses, generator results and spinner ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed.String())
	case questionsMsg:
		// The failure, if any, is kept on the session for View.
		_ = m.session.CompleteStart(typed.attempt, typed.questions, typed.err)
		return m, nil
	case spinner.TickMsg:
		if !m.session.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	s := m.session
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s":
		attempt, ok := s.BeginStart()
		if !ok {
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, generate(m.generator, attempt, m.opts.Timeout))
	case "1", "2", "3", "4":
		q, ok := s.Current()
		idx := int(key[0] - '1')
		if !ok || idx >= len(q.Options) {
			return m, nil
		}
		s.Answer(q.Options[idx])
	case "enter", " ":
		s.Advance()
	case "r":
		if s.Phase == quiz.PhaseFinished {
			s.Restart()
		}
	}
	return m, nil
}

// View renders the screen for the current phase.
func (m Model) View() string {
	v := m.session.View()
	switch {
	case v.Loading:
		return renderLoading(m.spinner.View(), m.opts.NoColor)
	case v.Error != nil:
		return renderError(v.Error, m.opts.NoColor)
	}

	switch m.session.Phase {
	case quiz.PhasePlaying:
		return renderQuestion(v, m.width, m.opts.NoColor)
	case quiz.PhaseFinished:
		return renderResults(v, m.opts.NoColor)
	default:
		return renderStart(m.opts.Title, m.opts.Description, m.opts.NoColor)
	}
}
