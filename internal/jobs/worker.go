package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker represents a background job worker
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	startupDelay time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance. The startup delay holds off the
// first cycle so the process finishes wiring before background work begins.
func NewWorker(processor JobProcessor, pollInterval, startupDelay time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		startupDelay: startupDelay,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("Worker starting in %v, poll interval: %v", w.startupDelay, w.pollInterval)

	delay := time.NewTimer(w.startupDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		log.Println("Worker stopped: context cancelled")
		return
	case <-w.stopChan:
		log.Println("Worker stopped: stop signal received")
		return
	case <-delay.C:
	}

	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("Error processing jobs: %v", err)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("Error processing jobs: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Worker shutdown complete")
}
