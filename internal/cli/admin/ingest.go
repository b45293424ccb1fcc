package admin

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/campushq/docqa/internal/config"
	"github.com/campushq/docqa/internal/database"
	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/loader"
	"github.com/campushq/docqa/internal/openai"
	"github.com/campushq/docqa/internal/repository"
	"github.com/campushq/docqa/internal/service"
	"github.com/campushq/docqa/internal/vector"
	openaiapi "github.com/sashabaranov/go-openai"
)

// IngestCmd returns the ingest command for one-shot local file ingestion.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a local document into the index",
		Long:  "Chunk, enrich, and index a local document synchronously, bypassing object storage and the background worker",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().String("uploader", "admin", "Uploader label recorded on the document")
	cmd.Flags().String("url", "", "Public URL recorded on the document (optional)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for ingestion")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

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

	uploader, _ := cmd.Flags().GetString("uploader")
	url, _ := cmd.Flags().GetString("url")

	documentRepo := repository.NewDocumentRepository(pool)
	doc := domain.NewDocument(uuid.NewString(), filepath.Base(path), "", url, uploader, time.Now().UTC())
	if err := documentRepo.Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to record document: %w", err)
	}

	ingestor := service.NewIngestor(loader.New(), service.NewEnricher(aiClient), index, service.DefaultChunkConfig())

	chunkCount, err := ingestor.Ingest(ctx, *doc, path)
	if err != nil {
		if statusErr := documentRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0); statusErr != nil {
			log.Printf("failed to mark document failed: %v", statusErr)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if err := documentRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusIndexed, chunkCount); err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}

	fmt.Printf("ingested %s: document %s, %d chunks\n", doc.Name, doc.ID, chunkCount)
	return nil
}
