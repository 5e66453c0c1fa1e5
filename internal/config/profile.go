package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile shapes the generation prompt. The output language is fixed.
type Profile struct {
	Title         string   `yaml:"title"`
	Subject       string   `yaml:"subject"`
	Level         string   `yaml:"level"`
	QuestionCount int      `yaml:"question_count"`
	FocusTopics   []string `yaml:"focus_topics"`
	Temperature   float32  `yaml:"temperature"`
}

func DefaultProfile() Profile {
	return Profile{
		Title:         "Kennistoets Musculoskeletale Echografie",
		Subject:       "musculoskeletale echografie",
		Level:         "masterniveau",
		QuestionCount: 10,
		FocusTopics: []string{
			"pathologieherkenning",
			"Doppler-technieken",
			"interventionele procedures",
			"anatomische varianten",
		},
		Temperature: 0.7,
	}
}

// LoadProfile overlays the YAML file at path on DefaultProfile. An empty path
// returns the defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read quiz profile: %w", err)
	}

	var override Profile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("failed to parse quiz profile %s: %w", path, err)
	}

	if override.Title != "" {
		p.Title = override.Title
	}
	if override.Subject != "" {
		p.Subject = override.Subject
	}
	if override.Level != "" {
		p.Level = override.Level
	}
	if override.QuestionCount > 0 {
		p.QuestionCount = override.QuestionCount
	}
	if len(override.FocusTopics) > 0 {
		p.FocusTopics = override.FocusTopics
	}
	if override.Temperature > 0 {
		p.Temperature = override.Temperature
	}

	if p.QuestionCount > 50 {
		return p, fmt.Errorf("question_count %d exceeds the maximum of 50", p.QuestionCount)
	}
	return p, nil
}
