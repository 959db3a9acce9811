package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pargar-ir/qanun-ingest/internal/api/handlers"
	appMiddleware "github.com/pargar-ir/qanun-ingest/internal/api/middlewares"
	"github.com/pargar-ir/qanun-ingest/internal/config"
	"github.com/pargar-ir/qanun-ingest/internal/core"
	db "github.com/pargar-ir/qanun-ingest/internal/core/database"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/pipeline"
	"github.com/pargar-ir/qanun-ingest/internal/services"
	"github.com/pargar-ir/qanun-ingest/internal/syncbridge"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, log *logger.Logger, dbClient *db.DatabaseClient,
	objects core.ObjectClient, embedder core.EmbeddingProvider,
	processor *pipeline.Processor, scheduler *pipeline.Scheduler,
	builder *syncbridge.PayloadBuilder) *Server {

	docService := services.NewDocumentService(dbClient, objects, cfg.BucketName, scheduler)
	unitService := services.NewUnitService(dbClient, scheduler)
	syncService := services.NewSyncService(dbClient, builder, cfg.SyncMaxRetries)
	searchService := services.NewSearchService(dbClient, embedder)

	docHandler := handlers.NewDocumentHandler(docService)
	unitHandler := handlers.NewUnitHandler(unitService)
	ingestHandler := handlers.NewIngestHandler(dbClient, processor, searchService)
	syncHandler := handlers.NewSyncHandler(syncService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(appMiddleware.JWT(cfg.JWTSecret))

		api.Post("/works", docHandler.CreateWork)
		api.Get("/works/{id}", docHandler.GetWork)
		api.Post("/expressions", docHandler.CreateExpression)
		api.Get("/expressions/{id}", docHandler.GetExpression)
		api.Get("/expressions/{id}/units", unitHandler.ListByExpression)
		api.Post("/manifestations", docHandler.CreateManifestation)
		api.Get("/manifestations/{id}", docHandler.GetManifestation)
		api.Post("/manifestations/{id}/files", docHandler.UploadFile)
		api.Get("/manifestations/{id}/files", docHandler.ListFiles)

		api.Post("/units", unitHandler.Create)
		api.Get("/units/{id}", unitHandler.Get)
		api.Put("/units/{id}", unitHandler.Update)
		api.Delete("/units/{id}", unitHandler.Delete)

		api.Post("/ingest/expressions/{id}/process", ingestHandler.ProcessExpression)
		api.Post("/ingest/units/{id}/process", ingestHandler.ProcessUnit)
		api.Post("/ingest/process-all", ingestHandler.ProcessAll)
		api.Post("/ingest/cleanup-duplicates", ingestHandler.CleanupDuplicates)
		api.Get("/chunks/search", ingestHandler.SearchChunks)

		api.Post("/sync/jobs", syncHandler.CreateJob)
		api.Get("/sync/jobs/{id}", syncHandler.GetJob)
		api.Post("/sync/jobs/{id}/payload-preview", syncHandler.PayloadPreview)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Fatal("server error", "error", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
