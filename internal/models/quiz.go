package models

import (
	"time"

	"github.com/google/uuid"
)

// QuizQuestion is one generated multiple-choice question. It is never modified
// after the generator returns it.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type AnswerRequest struct {
	Choice string `json:"choice"`
}

type CreateSessionResponse struct {
	Session SessionView `json:"session"`
	Token   string      `json:"token"`
}

// SessionView is what a client renders. The correct answer of the current
// question is only revealed once it has been answered.
type SessionView struct {
	ID             uuid.UUID     `json:"id"`
	Phase          string        `json:"phase"`
	Loading        bool          `json:"loading"`
	Error          *FailureView  `json:"error,omitempty"`
	Progress       *ProgressView `json:"progress,omitempty"`
	Question       *QuestionView `json:"question,omitempty"`
	SelectedAnswer *string       `json:"selected_answer"`
	IsAnswered     bool          `json:"is_answered"`
	Explanation    *string       `json:"explanation"`
	Score          int           `json:"score"`
	NextLabel      string        `json:"next_label,omitempty"`
	Summary        *SummaryView  `json:"summary,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type FailureView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ProgressView struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

type QuestionView struct {
	Text    string       `json:"text"`
	Options []OptionView `json:"options"`
}

// OptionView.State is one of "neutral", "correct", "incorrect" or "dimmed".
type OptionView struct {
	Text  string `json:"text"`
	State string `json:"state"`
}

type SummaryView struct {
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Feedback   string `json:"feedback"`
	Message    string `json:"message"`
}
