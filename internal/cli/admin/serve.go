package admin

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

	"github.com/fitstack/coachd/internal/api/handlers"
	"github.com/fitstack/coachd/internal/config"
	"github.com/fitstack/coachd/internal/database"
	"github.com/fitstack/coachd/internal/jobs"
	"github.com/fitstack/coachd/internal/openai"
	"github.com/fitstack/coachd/internal/repository"
	"github.com/fitstack/coachd/internal/server"
	"github.com/fitstack/coachd/internal/service"
	"github.com/fitstack/coachd/internal/storage"
	"github.com/fitstack/coachd/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const (
	batchAdvanceInterval  = 10 * time.Second
	scheduleSweepInterval = time.Minute
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the coachd API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
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

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	pipelineConfigRepo := repository.NewPipelineConfigRepository(pool)
	pipelineRunRepo := repository.NewPipelineRunRepository(pool)
	traceRepo := repository.NewTraceRepository(pool)
	personaRepo := repository.NewPersonaRepository(pool)
	memoryRepo := repository.NewMemoryRepository(pool)
	dailyRepo := repository.NewDailySummaryRepository(pool)
	conversationRepo := repository.NewConversationSummaryRepository(pool)

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		adapter := openai.NewOpenAIAdapter(cfg.OpenAIAPIKey, openai.DefaultEmbeddingModel)
		breaker := openai.NewBreakerClient(adapter, openai.DefaultBreakerConfig())
		embeddingClient = openai.NewClientWithAPI(breaker, 0)
	} else {
		log.Println("OPENAI_API_KEY not set: semantic search and embedding jobs unavailable")
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	batchRunner := service.NewBatchRunner(embeddingJobRepo, knowledgeRepo, chunkRepo, embeddingClient, uuidGen)

	searchSvc := service.NewSearchService(chunkRepo, embeddingClient, traceRepo, cfg.CrossCoachID, cfg.DebugConfig())
	orchestrator := service.NewOrchestrator(personaRepo, memoryRepo, dailyRepo, conversationRepo, searchSvc, traceRepo, cfg.DebugConfig())

	ingestSvc := service.NewKnowledgeIngestService(repository.NewTxRunner(pool))
	catalogSvc := service.NewKnowledgeCatalogService(knowledgeRepo, ingestSvc)

	scheduler := service.NewScheduler(pipelineConfigRepo, pipelineRunRepo)
	if cfg.HasS3() {
		store, err := storage.NewDocumentStore(ctx, storage.DocumentStoreConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create document store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

		refresh := service.NewRefreshPipeline(store, ingestSvc, batchRunner)
		scheduler.Register(service.RefreshPipelineName, refresh.Run)
		if err := scheduler.EnsureConfig(ctx, service.DefaultRefreshConfig()); err != nil {
			return fmt.Errorf("failed to install refresh pipeline config: %w", err)
		}
	} else {
		log.Println("S3 not configured: knowledge_refresh pipeline unavailable")
	}

	advancer := jobs.NewBatchAdvancer(embeddingJobRepo, batchRunner)
	batchWorker := jobs.NewWorker("batch-advancer", advancer, batchAdvanceInterval)
	go batchWorker.Start(ctx)

	checker := jobs.NewScheduleChecker(scheduler)
	scheduleWorker := jobs.NewWorker("schedule-checker", checker, scheduleSweepInterval)
	go scheduleWorker.Start(ctx)
	log.Println("background workers started")

	routerCfg := server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(catalogSvc),
		SearchHandler:    handlers.NewSearchHandler(searchSvc),
		ContextHandler:   handlers.NewContextHandler(orchestrator),
		JobsHandler:      handlers.NewJobsHandler(batchRunner),
		PipelineHandler:  handlers.NewPipelineHandler(scheduler),
	}

	router := server.NewRouter(routerCfg)

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

	batchWorker.Stop()
	scheduleWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
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
