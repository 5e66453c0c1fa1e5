// Package quiz holds the quiz session state machine. A Session has a single
// writer; callers that share one across goroutines serialise access themselves
// (see repository.SessionStore.Update).
package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"

	"echoquiz-backend/internal/models"
)

type Phase string

const (
	PhaseStart    Phase = "START"
	PhasePlaying  Phase = "PLAYING"
	PhaseFinished Phase = "FINISHED"
)

// Generator produces one batch of questions per call.
type Generator interface {
	GenerateQuestions(ctx context.Context) ([]models.QuizQuestion, error)
}

type Session struct {
	ID                 uuid.UUID             `json:"id"`
	Phase              Phase                 `json:"phase"`
	Questions          []models.QuizQuestion `json:"questions"`
	CurrentIndex       int                   `json:"current_index"`
	Score              int                   `json:"score"`
	SelectedAnswer     *string               `json:"selected_answer"`
	IsAnswered         bool                  `json:"is_answered"`
	PendingExplanation *string               `json:"pending_explanation"`
	Loading            bool                  `json:"loading"`
	Attempt            int                   `json:"attempt"`
	Error              *Failure              `json:"error,omitempty"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

func NewSession(id uuid.UUID) *Session {
	return &Session{
		ID:        id,
		Phase:     PhaseStart,
		Questions: []models.QuizQuestion{},
		UpdatedAt: time.Now().UTC(),
	}
}

// BeginStart marks the session as loading. It only applies in START with no
// load pending; the returned attempt must be handed back to CompleteStart.
func (s *Session) BeginStart() (int, bool) {
	if s.Phase != PhaseStart || s.Loading {
		return s.Attempt, false
	}
	s.Attempt++
	s.Loading = true
	s.Error = nil
	s.touch()
	return s.Attempt, true
}

// CompleteStart applies a generator result. Results for an attempt that is no
// longer pending (restarted, or superseded) are dropped and nil is returned.
func (s *Session) CompleteStart(attempt int, questions []models.QuizQuestion, err error) error {
	if !s.Loading || attempt != s.Attempt {
		return nil
	}
	s.Loading = false
	defer s.touch()

	if err != nil {
		genErr := &GenerationError{Kind: KindGenerationFailed, Message: userMessage(err), Err: err}
		s.Error = &Failure{Kind: genErr.Kind, Message: genErr.Message}
		return genErr
	}
	if len(questions) == 0 {
		genErr := &GenerationError{Kind: KindEmptyResult, Message: emptyResultMessage}
		s.Error = &Failure{Kind: genErr.Kind, Message: genErr.Message}
		return genErr
	}

	s.Questions = append([]models.QuizQuestion(nil), questions...)
	s.CurrentIndex = 0
	s.Score = 0
	s.SelectedAnswer = nil
	s.IsAnswered = false
	s.PendingExplanation = nil
	s.Error = nil
	s.Phase = PhasePlaying
	return nil
}

// Start runs a whole generation round for a caller that owns the session
// exclusively. A start outside START is ignored; a start while loading
// returns ErrGenerationInProgress.
func (s *Session) Start(ctx context.Context, gen Generator) error {
	if s.Loading {
		return ErrGenerationInProgress
	}
	attempt, ok := s.BeginStart()
	if !ok {
		return nil
	}
	questions, err := gen.GenerateQuestions(ctx)
	return s.CompleteStart(attempt, questions, err)
}

// Answer records the choice for the current question. Repeated answers and
// answers outside PLAYING are ignored.
func (s *Session) Answer(choice string) bool {
	if s.Phase != PhasePlaying || s.IsAnswered {
		return false
	}
	q := s.Questions[s.CurrentIndex]
	s.SelectedAnswer = &choice
	s.IsAnswered = true

	if choice == q.CorrectAnswer {
		s.Score++
		s.PendingExplanation = nil
	} else {
		explanation := q.Explanation
		s.PendingExplanation = &explanation
	}
	s.touch()
	return true
}

// Advance moves to the next question, or to FINISHED after the last one.
func (s *Session) Advance() bool {
	if s.Phase != PhasePlaying || !s.IsAnswered {
		return false
	}
	if s.IsLast() {
		s.Phase = PhaseFinished
		s.touch()
		return true
	}
	s.CurrentIndex++
	s.SelectedAnswer = nil
	s.IsAnswered = false
	s.PendingExplanation = nil
	s.touch()
	return true
}

// Restart returns the session to an empty START state from any phase. A
// pending load is abandoned; its result will be dropped by CompleteStart.
func (s *Session) Restart() bool {
	s.Phase = PhaseStart
	s.Questions = []models.QuizQuestion{}
	s.CurrentIndex = 0
	s.Score = 0
	s.SelectedAnswer = nil
	s.IsAnswered = false
	s.PendingExplanation = nil
	s.Loading = false
	s.Error = nil
	s.touch()
	return true
}

func (s *Session) Current() (models.QuizQuestion, bool) {
	if s.Phase != PhasePlaying || s.CurrentIndex >= len(s.Questions) {
		return models.QuizQuestion{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

func (s *Session) Total() int { return len(s.Questions) }

func (s *Session) IsLast() bool { return s.CurrentIndex >= len(s.Questions)-1 }

// Clone returns a deep copy so a snapshot can be read while the original is
// mutated elsewhere.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = make([]models.QuizQuestion, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		c.Questions[i] = q
	}
	if s.SelectedAnswer != nil {
		v := *s.SelectedAnswer
		c.SelectedAnswer = &v
	}
	if s.PendingExplanation != nil {
		v := *s.PendingExplanation
		c.PendingExplanation = &v
	}
	if s.Error != nil {
		f := *s.Error
		c.Error = &f
	}
	return &c
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
