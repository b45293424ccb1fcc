package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/campushq/docqa/internal/domain"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll cycle picks up
	claimBatchSize = 10
)

// IngestJobStore defines the interface for ingest job persistence
type IngestJobStore interface {
	// ClaimPending retrieves and claims pending ingest jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus updates the status of an ingest job
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	// Requeue returns a claimed job to the pending queue with its last error
	Requeue(ctx context.Context, id string, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentStore defines the document row operations the worker needs
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int) error
}

// DocumentFetcher stages a stored document's bytes on local disk
type DocumentFetcher interface {
	// Fetch downloads the object to a temp file and returns its path plus
	// a cleanup func. cleanup is always safe to call.
	Fetch(ctx context.Context, storageKey string) (string, func(), error)
}

// DocumentIngestor runs the ingestion pipeline for one staged document
type DocumentIngestor interface {
	Ingest(ctx context.Context, doc domain.Document, path string) (int, error)
}

// IngestWorker processes document ingestion jobs
type IngestWorker struct {
	jobs      IngestJobStore
	documents DocumentStore
	fetcher   DocumentFetcher
	ingestor  DocumentIngestor
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(jobs IngestJobStore, documents DocumentStore, fetcher DocumentFetcher, ingestor DocumentIngestor) *IngestWorker {
	return &IngestWorker{
		jobs:      jobs,
		documents: documents,
		fetcher:   fetcher,
		ingestor:  ingestor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.jobs.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	chunkCount, err := w.ingestDocument(ctx, job.DocumentID)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.documents.UpdateStatus(ctx, job.DocumentID, domain.DocumentStatusIndexed, chunkCount); err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: %d chunks indexed for document %s", job.ID, chunkCount, job.DocumentID)
	return nil
}

func (w *IngestWorker) ingestDocument(ctx context.Context, documentID string) (int, error) {
	doc, err := w.documents.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to load document row: %w", err)
	}

	path, cleanup, err := w.fetcher.Fetch(ctx, doc.StorageKey)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch document bytes: %w", err)
	}
	defer cleanup()

	return w.ingestor.Ingest(ctx, *doc, path)
}

// handleJobFailure handles a failed job with retry logic
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.jobs.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		// The document stays visible with a terminal failed status.
		if err := w.documents.UpdateStatus(ctx, job.DocumentID, domain.DocumentStatusFailed, 0); err != nil {
			return fmt.Errorf("failed to mark document failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.jobs.Requeue(ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	return nil
}
