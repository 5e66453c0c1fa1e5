package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"echoquiz-backend/internal/config"
	"echoquiz-backend/internal/models"
)

type stubContentGenerator struct {
	text    string
	err     error
	calls   int
	entered chan struct{}
	block   chan struct{}
}

func (s *stubContentGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.calls++
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(s.text)}},
			FinishReason: genai.FinishReasonStop,
		}},
	}, nil
}

const validBatch = `{"questions":[
 {"question":"Welke structuur?","options":["A","B","C","D"],"correctAnswer":"B","explanation":"Omdat B."},
 {"question":"Welk signaal?","options":["W","X","Y","Z"],"correctAnswer":"Z","explanation":"Omdat Z."}
]}`

func TestGenerateQuestions_ParsesBatch(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	svc := newGeminiService(&stubContentGenerator{text: validBatch}, "prompt", 2, log)

	qs, err := svc.GenerateQuestions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[1].CorrectAnswer != "Z" || qs[1].Explanation != "Omdat Z." {
		t.Fatalf("unexpected second question: %+v", qs[1])
	}
	if last := hook.LastEntry(); last == nil || last.Data["questions"] != 2 {
		t.Fatalf("expected summary log with questions=2, got %+v", last)
	}
}

func TestGenerateQuestions_TransportErrorIsGeneratorError(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	cause := errors.New("API key not valid")
	svc := newGeminiService(&stubContentGenerator{err: cause}, "prompt", 1, log)

	_, err := svc.GenerateQuestions(context.Background())

	var genErr *GeneratorError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GeneratorError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be wrapped")
	}
	if genErr.UserMessage() != generationFailedMessage {
		t.Fatalf("unexpected user message %q", genErr.UserMessage())
	}
}

func TestGenerateQuestions_MalformedOutputIsGeneratorError(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	for name, text := range map[string]string{
		"not json":          "Sorry, ik kan dat niet.",
		"missing questions": `{"items":[]}`,
		"missing field":     `{"questions":[{"question":"Q","options":["a","b","c","d"],"explanation":"e"}]}`,
		"empty":             "   ",
	} {
		t.Run(name, func(t *testing.T) {
			svc := newGeminiService(&stubContentGenerator{text: text}, "prompt", 1, log)
			_, err := svc.GenerateQuestions(context.Background())
			var genErr *GeneratorError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected *GeneratorError, got %v", err)
			}
		})
	}
}

func TestGenerateQuestions_AllInvalidGivesEmptyBatch(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	text := `{"questions":[{"question":"Q","options":["a","b"],"correctAnswer":"a","explanation":"e"}]}`
	svc := newGeminiService(&stubContentGenerator{text: text}, "prompt", 1, log)

	qs, err := svc.GenerateQuestions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 0 {
		t.Fatalf("expected empty batch, got %d", len(qs))
	}

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Dropped generated question" {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a warning for the dropped question")
	}
}

func TestGenerateQuestions_WaitRespectsContext(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	stub := &stubContentGenerator{text: validBatch, entered: make(chan struct{}, 1), block: make(chan struct{})}
	svc := newGeminiService(stub, "prompt", 1, log)

	done := make(chan struct{})
	go func() {
		svc.GenerateQuestions(context.Background())
		close(done)
	}()

	// The first call now holds the only slot.
	<-stub.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.GenerateQuestions(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(stub.block)
	<-done
	if len(svc.rateChan) != 1 {
		t.Fatal("expected slot to be released")
	}
}

func TestParseQuestionBatch_StripsFencesAndProse(t *testing.T) {
	for name, text := range map[string]string{
		"fenced": "```json\n" + validBatch + "\n```",
		"prose":  "Hier zijn de vragen:\n" + validBatch + "\nSucces!",
	} {
		t.Run(name, func(t *testing.T) {
			qs, err := parseQuestionBatch(text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(qs) != 2 {
				t.Fatalf("expected 2 questions, got %d", len(qs))
			}
		})
	}
}

func TestParseQuestionBatch_MissingQuestions(t *testing.T) {
	if _, err := parseQuestionBatch(`{"foo":1}`); !errors.Is(err, errNoQuestionsField) {
		t.Fatalf("expected errNoQuestionsField, got %v", err)
	}
	qs, err := parseQuestionBatch(`{"questions":[]}`)
	if err != nil || len(qs) != 0 {
		t.Fatalf("expected empty batch without error, got %v, %v", qs, err)
	}
}

func TestValidateQuizQuestions(t *testing.T) {
	q := func(opts []string, correct string) models.QuizQuestion {
		return models.QuizQuestion{Question: "Q", Options: opts, CorrectAnswer: correct, Explanation: "E"}
	}
	input := []models.QuizQuestion{
		q([]string{" a ", "b", "c", "d"}, "a "),
		q([]string{"a", "b", "c"}, "a"),
		q([]string{"a", "a", "c", "d"}, "a"),
		q([]string{"a", "", "c", "d"}, "a"),
		q([]string{"a", "b", "c", "d"}, "e"),
		{Question: "  ", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a"},
	}

	valid, dropped := validateQuizQuestions(input)
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid question, got %d", len(valid))
	}
	if valid[0].Options[0] != "a" || valid[0].CorrectAnswer != "a" {
		t.Fatalf("expected trimmed values, got %+v", valid[0])
	}
	if len(dropped) != 5 {
		t.Fatalf("expected 5 dropped, got %d: %v", len(dropped), dropped)
	}
}

func TestBuildQuizPrompt(t *testing.T) {
	p := config.DefaultProfile()
	prompt := buildQuizPrompt(p)

	for _, want := range []string{
		"Genereer 10 quizvragen",
		"musculoskeletale echografie",
		"4 opties",
		"Doppler-technieken, interventionele procedures en anatomische varianten",
		"Nederlands",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestJoinDutch(t *testing.T) {
	cases := map[string][]string{
		"":          nil,
		"a":         {"a"},
		"a en b":    {"a", "b"},
		"a, b en c": {"a", "b", "c"},
	}
	for want, in := range cases {
		if got := joinDutch(in); got != want {
			t.Errorf("joinDutch(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestQuizResponseSchema_RequiresAllFields(t *testing.T) {
	s := quizResponseSchema(10)
	items := s.Properties["questions"].Items
	if len(items.Required) != 4 {
		t.Fatalf("expected 4 required fields, got %v", items.Required)
	}
	if len(s.Required) != 1 || s.Required[0] != "questions" {
		t.Fatalf("expected questions to be required, got %v", s.Required)
	}
}
