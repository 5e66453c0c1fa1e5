package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"echoquiz-backend/internal/models"
	"echoquiz-backend/internal/quiz"
	"echoquiz-backend/internal/services"
)

type stubQuizService struct {
	session    *quiz.Session
	err        error
	lastChoice string
	deleted    bool
}

func (s *stubQuizService) result() (*quiz.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func (s *stubQuizService) CreateSession(ctx context.Context) (*quiz.Session, error) {
	return s.result()
}

func (s *stubQuizService) GetSession(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	return s.result()
}

func (s *stubQuizService) Start(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	return s.result()
}

func (s *stubQuizService) Answer(ctx context.Context, id uuid.UUID, choice string) (*quiz.Session, error) {
	s.lastChoice = choice
	return s.result()
}

func (s *stubQuizService) Advance(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	return s.result()
}

func (s *stubQuizService) Restart(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	return s.result()
}

func (s *stubQuizService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.deleted = true
	return s.err
}

type stubTokens struct{ err error }

func (s stubTokens) GenerateSessionToken(id uuid.UUID) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + id.String(), nil
}

type stubRuns struct {
	runs []models.GenerationRun
	err  error
}

func (s *stubRuns) ListBySession(ctx context.Context, id uuid.UUID, limit int) ([]models.GenerationRun, error) {
	return s.runs, s.err
}

func newTestHandler(svc *stubQuizService, runs runLister) *QuizHandler {
	log, _ := logtest.NewNullLogger()
	return NewQuizHandler(svc, stubTokens{}, runs, log)
}

func withSessionParam(req *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func playingSession(t *testing.T) *quiz.Session {
	t.Helper()
	s := quiz.NewSession(uuid.New())
	attempt, _ := s.BeginStart()
	err := s.CompleteStart(attempt, []models.QuizQuestion{
		{Question: "Q1", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "C", Explanation: "Omdat C."},
	}, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return s
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) models.SessionView {
	t.Helper()
	var view models.SessionView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v (%s)", err, rr.Body.String())
	}
	return view
}

func TestQuizHandler_Create(t *testing.T) {
	sess := quiz.NewSession(uuid.New())
	h := newTestHandler(&stubQuizService{session: sess}, nil)

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var resp models.CreateSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "token-"+sess.ID.String() || resp.Session.Phase != "START" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestQuizHandler_CreateTokenFailure(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	h := NewQuizHandler(&stubQuizService{session: quiz.NewSession(uuid.New())}, stubTokens{err: errors.New("no key")}, nil, log)

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestQuizHandler_GetHidesCorrectAnswer(t *testing.T) {
	sess := playingSession(t)
	h := newTestHandler(&stubQuizService{session: sess}, nil)

	req := withSessionParam(httptest.NewRequest(http.MethodGet, "/", nil), sess.ID)
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "Omdat C.") || strings.Contains(rr.Body.String(), "correctAnswer") {
		t.Fatalf("view leaks the answer before answering: %s", rr.Body.String())
	}
	view := decodeView(t, rr)
	if view.Question == nil || len(view.Question.Options) != 4 {
		t.Fatalf("expected current question with 4 options, got %+v", view.Question)
	}
}

func TestQuizHandler_StartFailureIsOK(t *testing.T) {
	sess := quiz.NewSession(uuid.New())
	attempt, _ := sess.BeginStart()
	sess.CompleteStart(attempt, nil, &services.GeneratorError{Err: errors.New("quota")})
	h := newTestHandler(&stubQuizService{session: sess}, nil)

	req := withSessionParam(httptest.NewRequest(http.MethodPost, "/", nil), sess.ID)
	rr := httptest.NewRecorder()
	h.Start(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	view := decodeView(t, rr)
	if view.Error == nil || view.Error.Kind != "GENERATION_FAILED" {
		t.Fatalf("expected GENERATION_FAILED in view, got %+v", view.Error)
	}
}

func TestQuizHandler_Answer(t *testing.T) {
	sess := playingSession(t)
	svc := &stubQuizService{session: sess}
	h := newTestHandler(svc, nil)

	body, _ := json.Marshal(models.AnswerRequest{Choice: "B"})
	req := withSessionParam(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), sess.ID)
	rr := httptest.NewRecorder()
	h.Answer(rr, req)

	if rr.Code != http.StatusOK || svc.lastChoice != "B" {
		t.Fatalf("expected 200 with choice B, got %d %q", rr.Code, svc.lastChoice)
	}

	req = withSessionParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")), sess.ID)
	rr = httptest.NewRecorder()
	h.Answer(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", rr.Code)
	}
}

func TestQuizHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", &services.NotFoundError{Message: "Session not found"}, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", &services.ConflictError{Message: "busy"}, http.StatusConflict, "CONFLICT"},
		{"validation", &services.ValidationError{Fields: map[string]string{"choice": "required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unexpected", errors.New("redis down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&stubQuizService{err: tc.err}, nil)
			req := withSessionParam(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New())
			req.Header.Set("X-Request-ID", "req-1")
			rr := httptest.NewRecorder()
			h.Advance(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var resp models.ErrorResponse
			json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp.Error.Code != tc.code || resp.Error.RequestID != "req-1" {
				t.Fatalf("unexpected envelope %+v", resp)
			}
		})
	}
}

func TestQuizHandler_InvalidSessionID(t *testing.T) {
	h := newTestHandler(&stubQuizService{}, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	h.Restart(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestQuizHandler_Delete(t *testing.T) {
	svc := &stubQuizService{}
	h := newTestHandler(svc, nil)

	req := withSessionParam(httptest.NewRequest(http.MethodDelete, "/", nil), uuid.New())
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusOK || !svc.deleted {
		t.Fatalf("expected 200 and delete call, got %d deleted=%v", rr.Code, svc.deleted)
	}
}

func TestQuizHandler_Runs(t *testing.T) {
	sess := quiz.NewSession(uuid.New())

	t.Run("disabled log returns empty list", func(t *testing.T) {
		h := newTestHandler(&stubQuizService{session: sess}, nil)
		req := withSessionParam(httptest.NewRequest(http.MethodGet, "/", nil), sess.ID)
		rr := httptest.NewRecorder()
		h.Runs(rr, req)

		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"runs":[]`) {
			t.Fatalf("expected empty runs, got %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("lists recorded runs", func(t *testing.T) {
		runs := &stubRuns{runs: []models.GenerationRun{{SessionID: sess.ID, Attempt: 1, Status: "completed", QuestionCount: 10}}}
		h := newTestHandler(&stubQuizService{session: sess}, runs)
		req := withSessionParam(httptest.NewRequest(http.MethodGet, "/", nil), sess.ID)
		rr := httptest.NewRecorder()
		h.Runs(rr, req)

		var resp struct {
			Runs []models.GenerationRun `json:"runs"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if rr.Code != http.StatusOK || len(resp.Runs) != 1 || resp.Runs[0].QuestionCount != 10 {
			t.Fatalf("unexpected runs response %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("store failure", func(t *testing.T) {
		h := newTestHandler(&stubQuizService{session: sess}, &stubRuns{err: errors.New("db down")})
		req := withSessionParam(httptest.NewRequest(http.MethodGet, "/", nil), sess.ID)
		rr := httptest.NewRecorder()
		h.Runs(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
	})
}
