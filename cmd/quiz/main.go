package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"echoquiz-backend/internal/config"
	"echoquiz-backend/internal/services"
	"echoquiz-backend/internal/ui/terminal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadClient()

	// The terminal belongs to the UI; logs go to a file in development only.
	log := config.NewLogger(cfg.Env, cfg.LogLevel)
	log.SetOutput(io.Discard)
	if cfg.Env == "development" {
		f, err := tea.LogToFile("quiz.log", "")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, profile, log)
	if err != nil {
		return err
	}
	defer gemini.Close()

	model := terminal.NewModel(gemini, terminal.Options{
		Title:       profile.Title,
		Description: fmt.Sprintf("Test uw kennis op %s met AI-gegenereerde vragen over %s.", profile.Level, profile.Subject),
		NoColor:     os.Getenv("NO_COLOR") != "",
		Timeout:     cfg.GenerationTimeout,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
