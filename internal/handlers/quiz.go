package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"echoquiz-backend/internal/models"
	"echoquiz-backend/internal/quiz"
	"echoquiz-backend/internal/services"
)

type quizService interface {
	CreateSession(ctx context.Context) (*quiz.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*quiz.Session, error)
	Start(ctx context.Context, id uuid.UUID) (*quiz.Session, error)
	Answer(ctx context.Context, id uuid.UUID, choice string) (*quiz.Session, error)
	Advance(ctx context.Context, id uuid.UUID) (*quiz.Session, error)
	Restart(ctx context.Context, id uuid.UUID) (*quiz.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

type tokenIssuer interface {
	GenerateSessionToken(sessionID uuid.UUID) (string, error)
}

type runLister interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.GenerationRun, error)
}

type QuizHandler struct {
	service quizService
	tokens  tokenIssuer
	runs    runLister
	log     logrus.FieldLogger
}

// NewQuizHandler serves the session endpoints. runs may be nil when the
// generation log is disabled.
func NewQuizHandler(service quizService, tokens tokenIssuer, runs runLister, log logrus.FieldLogger) *QuizHandler {
	return &QuizHandler{
		service: service,
		tokens:  tokens,
		runs:    runs,
		log:     log,
	}
}

func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to create session")
		handleServiceError(w, r, err)
		return
	}

	token, err := h.tokens.GenerateSessionToken(sess.ID)
	if err != nil {
		h.log.WithError(err).Error("failed to sign session token")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue session token", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		Session: sess.View(),
		Token:   token,
	})
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*quiz.Session, error) { return h.service.GetSession(r.Context(), id) })
}

// Start blocks until the generator returns. A failed generation still
// answers 200; the failure is part of the session view.
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*quiz.Session, error) { return h.service.Start(r.Context(), id) })
}

func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	h.respond(w, r, func() (*quiz.Session, error) { return h.service.Answer(r.Context(), id, req.Choice) })
}

func (h *QuizHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*quiz.Session, error) { return h.service.Advance(r.Context(), id) })
}

func (h *QuizHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (*quiz.Session, error) { return h.service.Restart(r.Context(), id) })
}

func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSession(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

// Runs lists the recorded generation attempts of a session, newest first.
func (h *QuizHandler) Runs(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if _, err := h.service.GetSession(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	runs := []models.GenerationRun{}
	if h.runs != nil {
		list, err := h.runs.ListBySession(r.Context(), id, 20)
		if err != nil {
			h.log.WithError(err).WithField("session_id", id).Error("failed to list generation runs")
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load generation history", r))
			return
		}
		if list != nil {
			runs = list
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *QuizHandler) respond(w http.ResponseWriter, r *http.Request, op func() (*quiz.Session, error)) {
	sess, err := op()
	if err != nil {
		switch err.(type) {
		case *services.ValidationError, *services.ConflictError, *services.NotFoundError:
		default:
			h.log.WithError(err).WithField("path", r.URL.Path).Error("session operation failed")
		}
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return id, true
}
