package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scholarlab/datastet/internal/annotate"
	"github.com/scholarlab/datastet/internal/cascade"
	"github.com/scholarlab/datastet/internal/doctree"
	"github.com/scholarlab/datastet/internal/parser"
	"github.com/scholarlab/datastet/internal/relevance"
	"github.com/scholarlab/datastet/internal/runstore"
	"github.com/scholarlab/datastet/internal/segment"
)

// Worker processes a single document job.
type Worker struct {
	gateway   cascade.Gateway
	relevance *relevance.Client
	seg       *segment.Segmenter
	runs      *runstore.Store
	log       *slog.Logger
}

// NewWorker builds a worker. seg may be nil to skip the segmentation
// pre-pass; runs may be nil to skip persistence.
func NewWorker(gw cascade.Gateway, rel *relevance.Client, seg *segment.Segmenter, runs *runstore.Store, log *slog.Logger) *Worker {
	return &Worker{
		gateway:   gw,
		relevance: rel,
		seg:       seg,
		runs:      runs,
		log:       log,
	}
}

// Process runs the full annotation pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	tree, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		tree.Title = job.Title
	}

	// Phase 2: Segment
	if w.seg != nil {
		job.SetStatus(StatusSegmenting, "segmenting")
		w.seg.SegmentDocument(tree)
	}
	doctree.AssignSentenceIDs(tree)
	job.SetTotalSentences(len(tree.Sentences()))
	log.Info("parsed document", "sentences", len(tree.Sentences()))

	// Phase 3: Classify and gate. The fusion is per-run: verdicts cached
	// here feed the annotation pass without re-classifying.
	job.SetStatus(StatusClassifying, "classifying")
	fusion := cascade.NewFusion(w.gateway, log)
	builder := relevance.NewBuilder(fusion, log)

	var feats *relevance.Features
	err = w.withRetry(ctx, log, "classify", func() error {
		var buildErr error
		feats, buildErr = builder.Build(ctx, tree)
		return buildErr
	})
	if err != nil {
		log.Error("classification failed", "error", err)
		job.AddError(fmt.Sprintf("classify: %s", err))
		job.SetStatus(StatusFailed, "classifying")
		return
	}

	var labels []bool
	err = w.withRetry(ctx, log, "relevance", func() error {
		var labelErr error
		labels, labelErr = w.relevance.Label(ctx, feats)
		return labelErr
	})
	if err != nil {
		log.Error("relevance labelling failed", "error", err)
		job.AddError(fmt.Sprintf("relevance: %s", err))
		job.SetStatus(StatusFailed, "classifying")
		return
	}

	relevant, err := relevance.Gate(tree, feats, labels)
	if err != nil {
		log.Error("relevance gating failed", "error", err)
		job.AddError(fmt.Sprintf("relevance: %s", err))
		job.SetStatus(StatusFailed, "classifying")
		return
	}
	nRelevant := 0
	for _, ok := range relevant {
		if ok {
			nRelevant++
		}
	}
	job.SetRelevantSections(nRelevant)

	// Phase 4: Annotate
	job.SetStatus(StatusAnnotating, "annotating")
	injector := annotate.NewInjector(fusion, log)
	result, err := injector.Apply(ctx, tree, relevant)
	if err != nil {
		log.Error("annotation failed", "error", err)
		job.AddError(fmt.Sprintf("annotate: %s", err))
		job.SetStatus(StatusFailed, "annotating")
		return
	}

	var out bytes.Buffer
	if err := parser.WriteTEI(&out, tree); err != nil {
		log.Error("serialization failed", "error", err)
		job.AddError(fmt.Sprintf("serialize: %s", err))
		job.SetStatus(StatusFailed, "annotating")
		return
	}
	job.SetResult(result, out.String())

	// Phase 5: Persist
	if w.runs != nil {
		saveErr := w.runs.Save(ctx, runstore.Run{
			ID:            job.ID,
			Filename:      job.Filename,
			Title:         tree.Title,
			Datasets:      result.Datasets,
			DataInstances: result.DataInstances,
			TEI:           out.String(),
			CreatedAt:     job.CreatedAt,
		})
		if saveErr != nil {
			log.Error("run persistence failed", "error", saveErr)
			job.AddError(fmt.Sprintf("persist: %s", saveErr))
			job.SetStatus(StatusPartial, "done")
			return
		}
	}

	job.SetStatus(StatusCompleted, "done")
	log.Info("annotation run complete",
		"datasets", result.Datasets,
		"data_instances", result.DataInstances,
		"relevant_sections", nRelevant)
}

// withRetry runs fn, retrying retryable failures with jittered backoff.
func (w *Worker) withRetry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable error", "op", op, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
