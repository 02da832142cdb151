package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scholarlab/datastet/internal/cascade"
	"github.com/scholarlab/datastet/internal/config"
	"github.com/scholarlab/datastet/internal/relevance"
	"github.com/scholarlab/datastet/internal/runstore"
	"github.com/scholarlab/datastet/internal/segment"
)

// Orchestrator manages the document annotation pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	gateway   cascade.Gateway
	relevance *relevance.Client
	seg       *segment.Segmenter
	runs      *runstore.Store
	log       *slog.Logger
	cfg       config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. seg may be nil when the
// segmentation pre-pass is disabled; runs may be nil to skip
// persistence.
func NewOrchestrator(cfg config.Config, gw cascade.Gateway, rel *relevance.Client, seg *segment.Segmenter, runs *runstore.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		gateway:   gw,
		relevance: rel,
		seg:       seg,
		runs:      runs,
		log:       log,
		cfg:       cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.gateway, o.relevance, o.seg, o.runs, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Gateway returns the classifier gateway for direct use by API handlers.
func (o *Orchestrator) Gateway() cascade.Gateway {
	return o.gateway
}

// RunStore returns the run store, nil when persistence is disabled.
func (o *Orchestrator) RunStore() *runstore.Store {
	return o.runs
}
