package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"echoquiz-backend/internal/models"
	"echoquiz-backend/internal/quiz"
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	correctStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	wrongStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160"))
	dimmedStyle  = lipgloss.NewStyle().Faint(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

const progressWidth = 30

func render(style lipgloss.Style, text string, noColor bool) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

func renderStart(title, description string, noColor bool) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		render(titleStyle, title, noColor),
		"",
		description,
		"",
		render(mutedStyle, "[s] Start de Quiz   [q] Afsluiten", noColor),
	)
}

func renderLoading(spin string, noColor bool) string {
	return spin + " " + render(mutedStyle, "Vragen worden gegenereerd...", noColor)
}

func renderError(f *models.FailureView, noColor bool) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		render(errorStyle, "Fout opgetreden", noColor),
		"",
		f.Message,
		"",
		render(mutedStyle, "[s] Probeer opnieuw   [q] Afsluiten", noColor),
	)
}

func renderQuestion(v models.SessionView, width int, noColor bool) string {
	lines := []string{
		render(mutedStyle, v.Progress.Label, noColor),
		progressBar(v.Progress.Percent),
		"",
		wrap(v.Question.Text, width),
		"",
	}

	for i, o := range v.Question.Options {
		line := fmt.Sprintf("%d. %s", i+1, o.Text)
		switch o.State {
		case quiz.OptionCorrect:
			line = render(correctStyle, line+"  ✓", noColor)
		case quiz.OptionIncorrect:
			line = render(wrongStyle, line+"  ✗", noColor)
		case quiz.OptionDimmed:
			line = render(dimmedStyle, line, noColor)
		}
		lines = append(lines, line)
	}

	if v.Explanation != nil {
		explanation := "Uitleg\n" + wrap(*v.Explanation, width-4)
		if noColor {
			lines = append(lines, "", explanation)
		} else {
			lines = append(lines, "", boxStyle.Render(explanation))
		}
	}

	lines = append(lines, "")
	if v.IsAnswered {
		lines = append(lines, render(mutedStyle, "[enter] "+v.NextLabel, noColor))
	} else {
		lines = append(lines, render(mutedStyle, "[1-4] Kies een antwoord   [q] Afsluiten", noColor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderResults(v models.SessionView, noColor bool) string {
	sum := v.Summary
	return lipgloss.JoinVertical(lipgloss.Left,
		render(titleStyle, sum.Feedback, noColor),
		"",
		sum.Message,
		"",
		render(accentStyle, fmt.Sprintf("%d%%", sum.Percentage), noColor),
		progressBar(sum.Percentage),
		"",
		render(mutedStyle, "[r] Opnieuw Proberen   [q] Afsluiten", noColor),
	)
}

func progressBar(percent int) string {
	filled := percent * progressWidth / 100
	if filled > progressWidth {
		filled = progressWidth
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled) + "]"
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
