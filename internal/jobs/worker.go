package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains whatever work is pending when the worker ticks.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed poll interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. A failed tick is logged and the next tick proceeds normally.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Ingest worker polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Ingest worker stopping: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Ingest worker stopping: stop requested")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("Ingest worker tick failed: %v", err)
			}
		}
	}
}

// Stop signals the loop to exit and blocks until the current tick finishes.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Ingest worker stopped")
}
