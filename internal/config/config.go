package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database (optional, generation-run log)
	DatabaseURL string

	// Redis (optional, session store + live updates)
	RedisURL string

	// Session tokens
	SessionSecret string
	SessionTTL    time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	GenerationTimeout    time.Duration

	// Prompt profile
	ProfilePath string

	// Frontend
	FrontendURL string
}

// Load reads the server configuration. It panics when a required variable is
// missing.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		SessionSecret:        mustGetEnv("SESSION_SECRET"),
		SessionTTL:           getEnvAsDurationOrDefault("SESSION_TTL", 24*time.Hour),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GenerationTimeout:    getEnvAsDurationOrDefault("GENERATION_TIMEOUT", 2*time.Minute),
		ProfilePath:          getEnvOrDefault("QUIZ_PROFILE", ""),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// LoadClient reads the subset needed by the terminal client, which has no
// server, store or token secret.
func LoadClient() *Config {
	godotenv.Load()

	return &Config{
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "warn"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: 1,
		GenerationTimeout:    getEnvAsDurationOrDefault("GENERATION_TIMEOUT", 2*time.Minute),
		ProfilePath:          getEnvOrDefault("QUIZ_PROFILE", ""),
	}
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
