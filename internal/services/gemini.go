package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"echoquiz-backend/internal/config"
	"echoquiz-backend/internal/models"
)

// contentGenerator is the part of *genai.GenerativeModel the service uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiService generates question batches. It implements quiz.Generator.
type GeminiService struct {
	client   *genai.Client
	model    contentGenerator
	prompt   string
	log      logrus.FieldLogger
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int, profile config.Profile, log logrus.FieldLogger) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(profile.Temperature)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = quizResponseSchema(profile.QuestionCount)

	svc := newGeminiService(model, buildQuizPrompt(profile), concurrentReqs, log)
	svc.client = client
	return svc, nil
}

func newGeminiService(model contentGenerator, prompt string, concurrentReqs int, log logrus.FieldLogger) *GeminiService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		model:    model,
		prompt:   prompt,
		log:      log,
		rateChan: rateChan,
	}
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateQuestions asks the model for one batch. Any failure is returned as a
// *GeneratorError; an empty but well-formed batch is not an error.
func (s *GeminiService) GenerateQuestions(ctx context.Context) ([]models.QuizQuestion, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, &GeneratorError{Err: fmt.Errorf("waiting for Gemini slot: %w", err)}
	}
	defer s.releaseRate()

	started := time.Now()
	resp, err := s.model.GenerateContent(ctx, genai.Text(s.prompt))
	if err != nil {
		s.log.WithError(err).Error("Gemini request failed")
		return nil, &GeneratorError{Err: fmt.Errorf("Gemini API error: %w", err)}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.log.WithFields(logrus.Fields{"candidate": i, "finish_reason": cand.FinishReason.String()}).
				Warn("Gemini stopped early")
		}
	}

	rawText := extractText(resp)
	questions, err := parseQuestionBatch(rawText)
	if err != nil {
		s.log.WithError(err).WithField("raw_length", len(rawText)).Error("Unexpected Gemini output")
		return nil, &GeneratorError{Err: err}
	}

	valid, dropped := validateQuizQuestions(questions)
	for _, reason := range dropped {
		s.log.WithField("reason", reason).Warn("Dropped generated question")
	}

	s.log.WithFields(logrus.Fields{
		"questions":   len(valid),
		"dropped":     len(dropped),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("Generated quiz questions")

	return valid, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

type rawQuestion struct {
	Question      *string  `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correctAnswer"`
	Explanation   *string  `json:"explanation"`
}

type rawBatch struct {
	Questions *[]rawQuestion `json:"questions"`
}

var errNoQuestionsField = errors.New("response has no questions field")

// parseQuestionBatch decodes the structured output. A missing "questions"
// field or a question missing a required field fails the whole batch.
func parseQuestionBatch(rawText string) ([]models.QuizQuestion, error) {
	rawText = strings.TrimSpace(rawText)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	if rawText == "" {
		return nil, errors.New("Gemini returned empty text")
	}

	var batch rawBatch
	if err := json.Unmarshal([]byte(rawText), &batch); err != nil {
		// Try to extract the JSON object
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("invalid JSON from Gemini: %w", err)
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &batch); err != nil {
			return nil, fmt.Errorf("invalid JSON from Gemini: %w", err)
		}
	}

	if batch.Questions == nil {
		return nil, errNoQuestionsField
	}

	questions := make([]models.QuizQuestion, 0, len(*batch.Questions))
	for i, rq := range *batch.Questions {
		var missing []string
		if rq.Question == nil {
			missing = append(missing, "question")
		}
		if rq.Options == nil {
			missing = append(missing, "options")
		}
		if rq.CorrectAnswer == nil {
			missing = append(missing, "correctAnswer")
		}
		if rq.Explanation == nil {
			missing = append(missing, "explanation")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("question %d is missing %s", i, strings.Join(missing, ", "))
		}

		questions = append(questions, models.QuizQuestion{
			Question:      *rq.Question,
			Options:       rq.Options,
			CorrectAnswer: *rq.CorrectAnswer,
			Explanation:   *rq.Explanation,
		})
	}
	return questions, nil
}

// validateQuizQuestions keeps questions with non-empty text, exactly four
// distinct non-empty options and a correct answer among them. Surrounding
// whitespace is trimmed. The second result lists why others were dropped.
func validateQuizQuestions(questions []models.QuizQuestion) ([]models.QuizQuestion, []string) {
	valid := make([]models.QuizQuestion, 0, len(questions))
	var dropped []string

	for i, q := range questions {
		q.Question = strings.TrimSpace(q.Question)
		q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		q.Explanation = strings.TrimSpace(q.Explanation)

		if q.Question == "" {
			dropped = append(dropped, fmt.Sprintf("question %d: empty text", i))
			continue
		}
		if len(q.Options) != optionsPerQuestion {
			dropped = append(dropped, fmt.Sprintf("question %d: %d options", i, len(q.Options)))
			continue
		}

		seen := make(map[string]bool, len(q.Options))
		opts := make([]string, len(q.Options))
		ok := true
		for j, o := range q.Options {
			o = strings.TrimSpace(o)
			if o == "" || seen[o] {
				ok = false
				break
			}
			seen[o] = true
			opts[j] = o
		}
		if !ok {
			dropped = append(dropped, fmt.Sprintf("question %d: empty or duplicate option", i))
			continue
		}
		if !seen[q.CorrectAnswer] {
			dropped = append(dropped, fmt.Sprintf("question %d: correct answer not among options", i))
			continue
		}

		q.Options = opts
		valid = append(valid, q)
	}
	return valid, dropped
}
