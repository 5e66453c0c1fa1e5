package quiz

import (
	"fmt"
	"math"

	"echoquiz-backend/internal/models"
)

const (
	OptionNeutral   = "neutral"
	OptionCorrect   = "correct"
	OptionIncorrect = "incorrect"
	OptionDimmed    = "dimmed"
)

// View projects the session into what a screen needs to render.
func (s *Session) View() models.SessionView {
	v := models.SessionView{
		ID:         s.ID,
		Phase:      string(s.Phase),
		Loading:    s.Loading,
		IsAnswered: s.IsAnswered,
		Score:      s.Score,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Error != nil {
		v.Error = &models.FailureView{Kind: string(s.Error.Kind), Message: s.Error.Message}
	}

	switch s.Phase {
	case PhasePlaying:
		q, ok := s.Current()
		if !ok {
			return v
		}
		v.Progress = s.progress()
		v.Question = &models.QuestionView{Text: q.Question, Options: s.optionViews(q)}
		if s.SelectedAnswer != nil {
			sel := *s.SelectedAnswer
			v.SelectedAnswer = &sel
		}
		if s.IsAnswered && s.PendingExplanation != nil {
			exp := *s.PendingExplanation
			v.Explanation = &exp
		}
		if s.IsAnswered {
			v.NextLabel = s.NextLabel()
		}
	case PhaseFinished:
		sum := s.Summary()
		v.Summary = &sum
	}
	return v
}

// NextLabel is the caption of the advance action for the current question.
func (s *Session) NextLabel() string {
	if s.IsLast() {
		return "Resultaten Bekijken"
	}
	return "Volgende Vraag"
}

func (s *Session) progress() *models.ProgressView {
	current := s.CurrentIndex + 1
	total := len(s.Questions)
	return &models.ProgressView{
		Current: current,
		Total:   total,
		Label:   fmt.Sprintf("Vraag %d van %d", current, total),
		Percent: current * 100 / total,
	}
}

func (s *Session) optionViews(q models.QuizQuestion) []models.OptionView {
	opts := make([]models.OptionView, len(q.Options))
	for i, o := range q.Options {
		opts[i] = models.OptionView{Text: o, State: s.OptionState(q, o)}
	}
	return opts
}

// OptionState classifies an option of q. Before the question is answered every
// option is neutral so the correct one cannot be inferred.
func (s *Session) OptionState(q models.QuizQuestion, option string) string {
	if !s.IsAnswered {
		return OptionNeutral
	}
	switch {
	case option == q.CorrectAnswer:
		return OptionCorrect
	case s.SelectedAnswer != nil && option == *s.SelectedAnswer:
		return OptionIncorrect
	default:
		return OptionDimmed
	}
}

// Summary is the results screen content. It is meaningful once FINISHED but
// safe to call in any phase.
func (s *Session) Summary() models.SummaryView {
	total := len(s.Questions)
	pct := Percentage(s.Score, total)
	return models.SummaryView{
		Score:      s.Score,
		Total:      total,
		Percentage: pct,
		Feedback:   Feedback(pct),
		Message:    fmt.Sprintf("Je hebt %d van de %d vragen correct beantwoord.", s.Score, total),
	}
}

// Percentage rounds half away from zero; an empty quiz scores 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

func Feedback(percentage int) string {
	switch {
	case percentage >= 80:
		return "Uitstekend!"
	case percentage >= 50:
		return "Goed gedaan!"
	default:
		return "Blijven oefenen!"
	}
}
