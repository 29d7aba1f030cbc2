package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/content-lifecycle-api/internal/api"
	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/render"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/content-lifecycle-api/internal/search"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/content-lifecycle-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting content lifecycle API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Open the full-text search index
	index, err := search.Open(cfg.Index.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open search index")
	}
	defer index.Close()

	// Initialize repositories and services
	repos := repository.New(db)
	sink := service.MultiSink{
		service.NewIndexSink(index, log),
		service.NewLogSink(log),
	}
	services := service.NewServices(db, repos, index, render.New(), sink, cfg, log)

	// Optionally rebuild the index from the relational store
	if cfg.Index.RebuildOnStart {
		indexed, err := services.Article.RebuildIndex(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Index rebuild failed; continuing with existing index")
		} else {
			log.Info().Int("indexed", indexed).Msg("Search index rebuilt on start")
		}
	}

	// Recovery sweep re-registers pending scheduled publications
	if err := services.Scheduler.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start publish scheduler")
	}
	log.Info().Msg("Publish scheduler started")

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop pending deferred publishes
	services.Scheduler.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
