package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nileshsolidarity/Processes/internal/api/handlers"
	appMiddleware "github.com/nileshsolidarity/Processes/internal/api/middlewares"
	"github.com/nileshsolidarity/Processes/internal/config"
	db "github.com/nileshsolidarity/Processes/internal/core/database"
	"github.com/nileshsolidarity/Processes/internal/core/ingest"
	"github.com/nileshsolidarity/Processes/internal/core/rag"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes. The chat stream and the sync trigger
// are mounted outside the request timeout since both legitimately outlive it.
func NewServer(cfg *config.Config, dbClient *db.Client, pipeline *ingest.Pipeline, orchestrator *rag.Orchestrator, log *zap.Logger) *Server {
	authHandler := handlers.NewAuthHandler(dbClient, cfg.JWTSecret)
	processHandler := handlers.NewProcessHandler(dbClient)
	syncHandler := handlers.NewSyncHandler(pipeline)
	chatHandler := handlers.NewChatHandler(orchestrator, dbClient)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// public endpoints
		api.Group(func(public chi.Router) {
			public.Use(chimiddleware.Timeout(60 * time.Second))
			public.Post("/auth/login", authHandler.Login)
			public.Get("/auth/branches", authHandler.Branches)
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Group(func(g chi.Router) {
				g.Use(chimiddleware.Timeout(60 * time.Second))
				g.Get("/processes", processHandler.List)
				g.Get("/processes/categories", processHandler.Categories)
				g.Get("/processes/{id}", processHandler.Get)
				g.Get("/sync/status", syncHandler.Status)
				g.Get("/chat/sessions", chatHandler.Sessions)
				g.Get("/chat/sessions/{id}/messages", chatHandler.Messages)
			})

			protected.Post("/sync", syncHandler.Trigger)
			protected.Post("/chat", chatHandler.Chat)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
