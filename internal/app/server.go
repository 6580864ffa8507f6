package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dianihealth/carebridge/internal/api/handlers"
	appMiddleware "github.com/dianihealth/carebridge/internal/api/middlewares"
	"github.com/dianihealth/carebridge/internal/chatbot"
	"github.com/dianihealth/carebridge/internal/config"
	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/extraction"
	"github.com/dianihealth/carebridge/internal/platform/logger"
	"github.com/dianihealth/carebridge/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, processor *extraction.FileProcessor, dispatcher *chatbot.Dispatcher, log *logger.Logger) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	patientHandler := handlers.NewPatientHandler(services.NewPatientService(db))
	noteHandler := handlers.NewNoteHandler(services.NewNoteService(db))
	fileHandler := handlers.NewFileHandler(db, obj, processor, cfg.BucketName, log)
	chatHandler := handlers.NewChatHandler(dispatcher, log)
	convHandler := handlers.NewConversationHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Post("/patients", patientHandler.Create)
			protected.Get("/patients", patientHandler.List)
			protected.Get("/patients/{id}", patientHandler.Get)
			protected.Put("/patients/{id}", patientHandler.Update)
			protected.Delete("/patients/{id}", patientHandler.Delete)

			protected.Post("/patients/{id}/notes", noteHandler.Create)
			protected.Get("/patients/{id}/notes", noteHandler.ListByPatient)
			protected.Put("/notes/{id}", noteHandler.Update)
			protected.Delete("/notes/{id}", noteHandler.Delete)

			protected.Post("/patients/{id}/files", fileHandler.Upload)
			protected.Get("/patients/{id}/files", fileHandler.ListByPatient)
			protected.Delete("/files/{id}", fileHandler.Delete)
			protected.Post("/process-file", fileHandler.ProcessFile)

			protected.Post("/chatbot", chatHandler.Chat)

			protected.Post("/conversations", convHandler.Create)
			protected.Get("/conversations", convHandler.List)
			protected.Get("/conversations/{id}", convHandler.Get)
			protected.Patch("/conversations/{id}/title", convHandler.UpdateTitle)
			protected.Put("/conversations/{id}/messages", convHandler.UpdateMessages)
			protected.Delete("/conversations/{id}", convHandler.Delete)
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
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
