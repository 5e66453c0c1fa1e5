package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"echoquiz-backend/internal/handlers"
	"echoquiz-backend/internal/middleware"
	"echoquiz-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	createLimiter *middleware.RateLimiter,
	quizHandler *handlers.QuizHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.With(createLimiter.Middleware).Post("/", quizHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(sessionAuth.Middleware)
				r.Get("/", quizHandler.Get)
				r.Delete("/", quizHandler.Delete)
				r.Get("/runs", quizHandler.Runs)
				r.Post("/start", quizHandler.Start)
				r.Post("/answer", quizHandler.Answer)
				r.Post("/advance", quizHandler.Advance)
				r.Post("/restart", quizHandler.Restart)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
