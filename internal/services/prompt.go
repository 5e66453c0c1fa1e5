package services

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"echoquiz-backend/internal/config"
)

// optionsPerQuestion is fixed by the answer screen layout.
const optionsPerQuestion = 4

func buildQuizPrompt(p config.Profile) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Genereer %d quizvragen op %s voor de opleiding %s. ", p.QuestionCount, p.Level, p.Subject))
	b.WriteString(fmt.Sprintf("Elke vraag moet multiple choice zijn met %d opties en één correct antwoord. ", optionsPerQuestion))
	b.WriteString("Geef voor elke vraag ook een korte, duidelijke uitleg waarom het juiste antwoord correct is. ")
	if len(p.FocusTopics) > 0 {
		b.WriteString(fmt.Sprintf("Focus op geavanceerde onderwerpen zoals %s. ", joinDutch(p.FocusTopics)))
	}
	b.WriteString("Het correcte antwoord moet letterlijk overeenkomen met één van de opties. ")
	b.WriteString("Geef de uitvoer strikt in het opgegeven JSON-formaat. ")
	b.WriteString("De vragen, antwoorden en uitleg moeten in het Nederlands zijn.")

	return b.String()
}

// joinDutch renders a list as "a, b en c".
func joinDutch(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " en " + items[len(items)-1]
}

func quizResponseSchema(count int) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type:        genai.TypeArray,
				Description: fmt.Sprintf("Een lijst van %d quizvragen.", count),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": {
							Type:        genai.TypeString,
							Description: "De tekst van de vraag.",
						},
						"options": {
							Type:        genai.TypeArray,
							Description: fmt.Sprintf("Een lijst van %d mogelijke antwoorden.", optionsPerQuestion),
							Items:       &genai.Schema{Type: genai.TypeString},
						},
						"correctAnswer": {
							Type:        genai.TypeString,
							Description: "Het correcte antwoord uit de lijst met opties.",
						},
						"explanation": {
							Type:        genai.TypeString,
							Description: "Een korte uitleg waarom het antwoord correct is.",
						},
					},
					Required: []string{"question", "options", "correctAnswer", "explanation"},
				},
			},
		},
		Required: []string{"questions"},
	}
}
