package admin

import (
	"context"
	"database/sql"
	"fmt"
	"io"
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
	"github.com/spf13/cobra"

	"github.com/campushq/docqa/internal/api/handlers"
	"github.com/campushq/docqa/internal/config"
	"github.com/campushq/docqa/internal/database"
	"github.com/campushq/docqa/internal/identity"
	"github.com/campushq/docqa/internal/jobs"
	"github.com/campushq/docqa/internal/loader"
	"github.com/campushq/docqa/internal/openai"
	"github.com/campushq/docqa/internal/repository"
	"github.com/campushq/docqa/internal/server"
	"github.com/campushq/docqa/internal/service"
	"github.com/campushq/docqa/internal/storage"
	"github.com/campushq/docqa/internal/telemetry"
	"github.com/campushq/docqa/internal/vector"
	openaiapi "github.com/sashabaranov/go-openai"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the document QA API server on the specified port",
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

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required: embeddings and answer synthesis depend on it")
	}
	if !cfg.HasIdentity() {
		return fmt.Errorf("IDENTITY_URL is required: every non-health route is authenticated")
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

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
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

	documentRepo := repository.NewDocumentRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openaiapi.EmbeddingModel(cfg.EmbeddingModel),
		ChatModel:      cfg.ChatModel,
	})

	index, err := vector.NewIndex(vector.Config{
		PersistDir: cfg.VectorDir,
		Collection: cfg.VectorCollection,
		Compress:   cfg.VectorCompress,
	}, aiClient)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	log.Printf("vector index ready (%d chunks)", index.Count())

	identityClient := identity.NewClient(cfg.IdentityURL)

	var ingestWorker *jobs.Worker
	var objectStore handlers.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		objectStore = s3Client

		ingestor := service.NewIngestor(loader.New(), service.NewEnricher(aiClient), index, service.DefaultChunkConfig())
		processor := jobs.NewIngestWorker(ingestJobRepo, documentRepo, s3Client, ingestor)
		ingestWorker = jobs.NewWorker(processor, 10*time.Second)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	} else {
		log.Println("S3 not configured: uploads disabled, ingest worker not started")
		objectStore = &noOpObjectStore{}
	}

	retriever := service.NewRetriever(index, cfg.RetrievalTopK, float32(cfg.RetrievalThreshold))
	querySvc := service.NewQueryService(
		retriever,
		service.NewSynthesizer(aiClient),
		service.NewDiagramDecider(aiClient),
		service.NewDiagramGenerator(aiClient),
		conversationRepo,
		cfg.HistoryWindow,
	)

	router := server.NewRouter(server.RouterConfig{
		IdentityVerifier: identityClient,
		DocumentHandler:  handlers.NewDocumentHandler(documentRepo, ingestJobRepo, objectStore),
		QueryHandler:     handlers.NewQueryHandler(querySvc),
		HistoryHandler:   handlers.NewHistoryHandler(conversationRepo),
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

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noOpObjectStore struct{}

func (s *noOpObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	return fmt.Errorf("object storage not configured: S3_ENDPOINT required")
}

func (s *noOpObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("object storage not configured: S3_ENDPOINT required")
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
