package routes

import (
	"net/http"

	"github.com/bscm/assistant-backend/app"
	"github.com/bscm/assistant-backend/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware. No global timeout middleware: the streaming endpoint
	// outlives any sensible request deadline, the relay carries its own.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handlers.NewChatHandler(deps.Rag, deps.Relay, deps.Recorder, deps.Logger)
	ragHandler := handlers.NewRagHandler(deps.Rag, deps.Logger)
	knowledgeHandler := handlers.NewKnowledgeHandler(deps.Browser, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealthz)
	r.Get("/readyz", healthHandler.HandleReadyz)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/stream", chatHandler.HandleStream)
			r.Post("/message", chatHandler.HandleMessage)
		})

		r.Post("/rag/enhanced-prompt", ragHandler.HandleEnhancedPrompt)

		r.Get("/knowledge", knowledgeHandler.HandleList)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
