package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/parley-hq/parley/internal/api/handlers"
	"github.com/parley-hq/parley/internal/config"
	"github.com/parley-hq/parley/internal/database"
	"github.com/parley-hq/parley/internal/jobs"
	"github.com/parley-hq/parley/internal/openai"
	"github.com/parley-hq/parley/internal/repository"
	"github.com/parley-hq/parley/internal/server"
	"github.com/parley-hq/parley/internal/service"
	"github.com/parley-hq/parley/internal/storage"
	"github.com/parley-hq/parley/internal/telemetry"
	"github.com/parley-hq/parley/internal/tools"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the knowledge engine API server",
		Long:  "Start the parley knowledge retrieval and tool server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Disable the background enrichment worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: cfg.SentrySampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	knowledgeRepo := repository.NewKnowledgeRepository(pool)

	// Without an API key the client degrades to local heuristics and the
	// retrieval engine leans on text search; nothing here is fatal.
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	if !cfg.HasOpenAI() {
		log.Println("no OpenAI API key configured, running in degraded mode")
	}

	retrievalSvc := service.NewRetrievalService(knowledgeRepo, openaiClient)
	enrichmentSvc := service.NewEnrichmentService(openaiClient, knowledgeRepo)
	knowledgeSvc := service.NewKnowledgeService(knowledgeRepo)

	registry, err := tools.NewRegistry(retrievalSvc)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}

	var archive *storage.TranscriptArchive
	if cfg.HasS3() {
		archive, err = storage.NewTranscriptArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create transcript archive: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure archive bucket: %w", err)
		}
		log.Printf("transcript archive bucket '%s' ready", cfg.S3Bucket)
	}

	var enrichmentWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		processor := jobs.NewEnrichmentProcessor(knowledgeRepo, enrichmentSvc, cfg.EnrichBatchSize)
		enrichmentWorker = jobs.NewWorker(processor, cfg.EnrichInterval, cfg.EnrichStartupDelay)
		go enrichmentWorker.Start(ctx)
		log.Println("enrichment worker started")
	}

	var archiveHandler *handlers.ArchiveHandler
	if archive != nil {
		archiveHandler = handlers.NewArchiveHandler(archive)
	} else {
		archiveHandler = handlers.NewArchiveHandler(nil)
	}

	router := server.NewRouter(server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc, retrievalSvc),
		ContextHandler:   handlers.NewContextHandler(retrievalSvc),
		ToolsHandler:     handlers.NewToolsHandler(registry),
		ArchiveHandler:   archiveHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if enrichmentWorker != nil {
		enrichmentWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
