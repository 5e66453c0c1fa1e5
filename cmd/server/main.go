package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"echoquiz-backend/internal/config"
	"echoquiz-backend/internal/database"
	"echoquiz-backend/internal/handlers"
	"echoquiz-backend/internal/middleware"
	"echoquiz-backend/internal/repository"
	"echoquiz-backend/internal/router"
	"echoquiz-backend/internal/services"
	"echoquiz-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log := config.NewLogger(cfg.Env, cfg.LogLevel)
	log.Info("🚀 Starting EchoQuiz Backend...")
	log.Info("✓ Environment variables loaded")

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		log.Fatalf("✗ Quiz profile invalid: %v", err)
	}
	log.WithFields(logrus.Fields{"subject": profile.Subject, "questions": profile.QuestionCount}).
		Info("✓ Quiz profile loaded")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ──── Step 2: Initialize Session Store (Redis or in-memory) ────
	var (
		store        services.SessionStore
		redisClients *database.RedisClients
	)
	if cfg.RedisURL != "" {
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		store = repository.NewRedisSessionStore(redisClients.Store, cfg.SessionTTL)
		log.Info("✓ Redis connected (session store + live updates)")
	} else {
		memStore := repository.NewMemorySessionStore(cfg.SessionTTL)
		go sweepSessions(ctx, memStore, log)
		store = memStore
		log.Warn("✓ REDIS_URL not set, using in-memory session store")
	}

	// ──── Step 3: Initialize PostgreSQL (optional generation log) ────
	var (
		runRecorder services.RunRecorder
		runLog      *repository.GenerationRepo
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Info("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, log); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Info("✓ Database migrations applied")

		runLog = repository.NewGenerationRepo(pool)
		runRecorder = runLog
	} else {
		log.Info("✓ DATABASE_URL not set, generation log disabled")
	}

	// ──── Step 4: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiConcurrentReqs,
		profile,
		log.WithField("component", "gemini"),
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.WithField("model", cfg.GeminiModel).Info("✓ Gemini client initialized")

	// ──── Step 5: Start WebSocket Hub ────
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret, cfg.SessionTTL)
	var (
		wsHub     *websocket.Hub
		publisher services.UpdatePublisher
	)
	if redisClients != nil {
		wsHub = websocket.NewHub(redisClients.PubSub, sessionAuth, log.WithField("component", "ws"))
		publisher = services.NewRedisPublisher(redisClients.Store, log)
	} else {
		wsHub = websocket.NewHub(nil, sessionAuth, log.WithField("component", "ws"))
		publisher = wsHub
	}
	log.Info("✓ WebSocket hub started")

	// ──── Initialize Services & Handlers ────
	quizService := services.NewQuizService(
		store,
		geminiService,
		publisher,
		runRecorder,
		cfg.GenerationTimeout,
		log.WithField("component", "quiz"),
	)

	quizHandler := handlers.NewQuizHandler(quizService, sessionAuth, nil, log)
	if runLog != nil {
		quizHandler = handlers.NewQuizHandler(quizService, sessionAuth, runLog, log)
	}

	createLimiter := middleware.NewRateLimiter(30, time.Minute)
	go createLimiter.Run(ctx)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(sessionAuth, createLimiter, quizHandler, wsHub, cfg.FrontendURL)

	// Start responds only after the generator returns, so writes may take
	// as long as one generation.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout+5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Infof("✓ EchoQuiz Backend ready on http://localhost:%s", cfg.Port)
	log.Infof("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Infof("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

// sweepSessions evicts idle in-memory sessions until ctx is done.
func sweepSessions(ctx context.Context, store *repository.MemorySessionStore, log logrus.FieldLogger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.WithField("removed", n).Info("Expired sessions swept")
			}
		}
	}
}
