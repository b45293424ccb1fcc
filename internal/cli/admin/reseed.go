package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/campushq/docqa/internal/config"
	"github.com/campushq/docqa/internal/database"
	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/loader"
	"github.com/campushq/docqa/internal/openai"
	"github.com/campushq/docqa/internal/repository"
	"github.com/campushq/docqa/internal/service"
	"github.com/campushq/docqa/internal/storage"
	"github.com/campushq/docqa/internal/vector"
	openaiapi "github.com/sashabaranov/go-openai"
)

// ReseedCmd returns the reseed command. It clears the vector index and
// rebuilds it from every indexed document in object storage.
func ReseedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reseed",
		Short: "Rebuild the vector index from stored documents",
		Long:  "Clear the vector index and re-run ingestion for every indexed document fetched from object storage",
		RunE:  runReseed,
	}
}

func runReseed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for reseeding")
	}
	if !cfg.HasS3() {
		return fmt.Errorf("S3 configuration is required for reseeding")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

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

	documentRepo := repository.NewDocumentRepository(pool)
	docs, err := documentRepo.ListIndexed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexed documents: %w", err)
	}

	if err := index.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	log.Printf("vector index cleared, re-ingesting %d documents", len(docs))

	ingestor := service.NewIngestor(loader.New(), service.NewEnricher(aiClient), index, service.DefaultChunkConfig())

	var reseeded, failed int
	for _, doc := range docs {
		if err := reseedDocument(ctx, s3Client, ingestor, documentRepo, doc); err != nil {
			log.Printf("reseed failed for document %s (%s): %v", doc.ID, doc.Name, err)
			failed++
			continue
		}
		reseeded++
	}

	fmt.Printf("reseed complete: %d documents re-ingested, %d failed\n", reseeded, failed)
	return nil
}

func reseedDocument(ctx context.Context, s3Client *storage.S3Client, ingestor *service.Ingestor, documentRepo *repository.DocumentRepository, doc *domain.Document) error {
	path, cleanup, err := s3Client.Fetch(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to fetch from storage: %w", err)
	}
	defer cleanup()

	chunkCount, err := ingestor.Ingest(ctx, *doc, path)
	if err != nil {
		return err
	}

	return documentRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusIndexed, chunkCount)
}
