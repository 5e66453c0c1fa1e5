package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"echoquiz-backend/internal/models"
	"echoquiz-backend/internal/quiz"
	"echoquiz-backend/internal/repository"
)

// SessionStore persists live sessions. Update must run fn with exclusive
// access to the stored session and save the result unless fn fails.
type SessionStore interface {
	Create(ctx context.Context, s *quiz.Session) error
	Get(ctx context.Context, id uuid.UUID) (*quiz.Session, error)
	Update(ctx context.Context, id uuid.UUID, fn func(s *quiz.Session) error) (*quiz.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage)
}

type RunRecorder interface {
	Record(ctx context.Context, run *models.GenerationRun) error
}

type QuizService struct {
	store     SessionStore
	generator quiz.Generator
	publisher UpdatePublisher
	runs      RunRecorder
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewQuizService wires the session lifecycle. publisher and runs may be nil.
func NewQuizService(
	store SessionStore,
	generator quiz.Generator,
	publisher UpdatePublisher,
	runs RunRecorder,
	timeout time.Duration,
	log logrus.FieldLogger,
) *QuizService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &QuizService{
		store:     store,
		generator: generator,
		publisher: publisher,
		runs:      runs,
		timeout:   timeout,
		log:       log,
	}
}

func (s *QuizService) CreateSession(ctx context.Context) (*quiz.Session, error) {
	sess := quiz.NewSession(uuid.New())
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.WithField("session_id", sess.ID).Info("Session created")
	return sess, nil
}

func (s *QuizService) GetSession(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

func (s *QuizService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

// Start generates a batch for the session. Generator failures end up on the
// returned session as its error state and are not returned as errors. A start
// outside START returns the session unchanged.
func (s *QuizService) Start(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	var (
		attempt int
		began   bool
	)
	sess, err := s.store.Update(ctx, id, func(q *quiz.Session) error {
		if q.Loading {
			return &ConflictError{Message: "Questions are already being generated"}
		}
		attempt, began = q.BeginStart()
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	if !began {
		return sess, nil
	}

	log := s.log.WithFields(logrus.Fields{"session_id": id, "attempt": attempt})
	s.publisher.PublishUpdate(ctx, id, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{SessionID: id, Attempt: attempt, StepName: "Generating Questions"},
	})

	// The call runs to completion even if the caller goes away.
	detached := context.WithoutCancel(ctx)
	genCtx, cancel := context.WithTimeout(detached, s.timeout)
	defer cancel()

	started := time.Now()
	questions, genErr := s.generator.GenerateQuestions(genCtx)
	duration := time.Since(started)

	var outcome error
	sess, err = s.store.Update(detached, id, func(q *quiz.Session) error {
		outcome = q.CompleteStart(attempt, questions, genErr)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.record(detached, id, attempt, len(questions), outcome, duration)

	var failure *quiz.GenerationError
	switch {
	case errors.As(outcome, &failure):
		log.WithError(outcome).Warn("Question generation failed")
		s.publisher.PublishUpdate(detached, id, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				SessionID:    id,
				Attempt:      attempt,
				ErrorCode:    string(failure.Kind),
				ErrorMessage: failure.Message,
			},
		})
	case sess.Phase == quiz.PhasePlaying:
		log.WithFields(logrus.Fields{"questions": sess.Total(), "duration_ms": duration.Milliseconds()}).
			Info("Quiz started")
		s.publisher.PublishUpdate(detached, id, models.WSMessage{
			Type:    "completed",
			Payload: models.CompletedEvent{SessionID: id, Attempt: attempt, QuestionCount: sess.Total()},
		})
	default:
		log.Info("Generation result dropped, session was restarted")
	}

	return sess, nil
}

func (s *QuizService) Answer(ctx context.Context, id uuid.UUID, choice string) (*quiz.Session, error) {
	if strings.TrimSpace(choice) == "" {
		return nil, &ValidationError{Fields: map[string]string{"choice": "Choice is required"}}
	}
	sess, err := s.store.Update(ctx, id, func(q *quiz.Session) error {
		q.Answer(choice)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

func (s *QuizService) Advance(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	sess, err := s.store.Update(ctx, id, func(q *quiz.Session) error {
		if q.Advance() && q.Phase == quiz.PhaseFinished {
			s.log.WithFields(logrus.Fields{"session_id": id, "score": q.Score, "total": q.Total()}).
				Info("Quiz finished")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

func (s *QuizService) Restart(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	sess, err := s.store.Update(ctx, id, func(q *quiz.Session) error {
		q.Restart()
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

func (s *QuizService) record(ctx context.Context, id uuid.UUID, attempt, count int, outcome error, duration time.Duration) {
	if s.runs == nil {
		return
	}

	run := &models.GenerationRun{
		SessionID:     id,
		Attempt:       attempt,
		Status:        "completed",
		QuestionCount: count,
		DurationMS:    duration.Milliseconds(),
	}
	var failure *quiz.GenerationError
	if errors.As(outcome, &failure) {
		kind := string(failure.Kind)
		msg := failure.Error()
		run.Status = "failed"
		run.ErrorKind = &kind
		run.ErrorMessage = &msg
	}

	if err := s.runs.Record(ctx, run); err != nil {
		s.log.WithError(err).WithField("session_id", id).Warn("failed to record generation run")
	}
}

func storeError(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return &NotFoundError{Message: "Session not found"}
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict
	}
	return err
}
