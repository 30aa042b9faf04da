package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whisker/pkg/whisker"
)

const (
	defaultExtractQueueSize = 64
	defaultExtractTimeout   = 30 * time.Second
)

// ExtractJob carries one completed exchange to the background extraction
// worker, with a snapshot of the notes that existed when it was enqueued.
type ExtractJob struct {
	UserID           int64
	Username         string
	UserMessage      string
	AssistantMessage string
	ExistingNotes    string
}

// WorkerOption mutates extraction worker configuration.
type WorkerOption func(*ExtractWorker)

// WithWorkerLogger injects a structured logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(worker *ExtractWorker) {
		if logger != nil {
			worker.logger = logger
		}
	}
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(size int) WorkerOption {
	return func(worker *ExtractWorker) {
		if size > 0 {
			worker.queueSize = size
		}
	}
}

// WithExtractTimeout bounds one extraction collaborator call.
func WithExtractTimeout(timeout time.Duration) WorkerOption {
	return func(worker *ExtractWorker) {
		if timeout > 0 {
			worker.timeout = timeout
		}
	}
}

// ExtractWorker folds asynchronously extracted facts into long-term notes.
//
// The reply path enqueues jobs without blocking; one dedicated goroutine
// drains the queue, calls the extraction collaborator, merges results via
// the store, and persists. A failed extraction only logs: it never touches
// notes and never affects the already-sent reply.
type ExtractWorker struct {
	store     *Store
	file      *SnapshotFile
	extractor whisker.Extractor
	logger    *slog.Logger
	queueSize int
	timeout   time.Duration

	jobs chan ExtractJob
}

// NewExtractWorker creates an extraction worker over one store and its
// snapshot file.
func NewExtractWorker(
	store *Store,
	file *SnapshotFile,
	extractor whisker.Extractor,
	options ...WorkerOption,
) (*ExtractWorker, error) {
	if store == nil {
		return nil, fmt.Errorf("new extract worker: nil store")
	}
	if file == nil {
		return nil, fmt.Errorf("new extract worker: nil snapshot file")
	}
	if extractor == nil {
		return nil, fmt.Errorf("new extract worker: nil extractor")
	}

	worker := &ExtractWorker{
		store:     store,
		file:      file,
		extractor: extractor,
		logger:    slog.Default(),
		queueSize: defaultExtractQueueSize,
		timeout:   defaultExtractTimeout,
	}
	for _, option := range options {
		option(worker)
	}
	worker.jobs = make(chan ExtractJob, worker.queueSize)

	return worker, nil
}

// Enqueue hands one job to the worker without blocking. It reports false
// when the queue is full and the job was dropped; dropping loses only a
// chance at new notes, never existing state.
func (w *ExtractWorker) Enqueue(job ExtractJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.logger.Warn("extraction queue full, dropping job", "user_id", job.UserID)
		return false
	}
}

// Run drains the queue until ctx is done.
func (w *ExtractWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.handle(ctx, job)
		}
	}
}

func (w *ExtractWorker) handle(ctx context.Context, job ExtractJob) {
	extractCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	facts, err := w.extractor.Extract(
		extractCtx,
		job.ExistingNotes,
		job.UserMessage,
		job.AssistantMessage,
	)
	if err != nil {
		w.logger.WarnContext(ctx, "fact extraction failed",
			"user_id", job.UserID,
			"error", err,
		)
		return
	}

	trimmed := strings.TrimSpace(facts)
	if trimmed == "" || strings.EqualFold(trimmed, whisker.NoNewFactsMarker) {
		w.logger.DebugContext(ctx, "no new facts extracted", "user_id", job.UserID)
		return
	}

	w.store.MergeNotes(job.UserID, trimmed)
	w.logger.InfoContext(ctx, "merged extracted facts",
		"user_id", job.UserID,
		"username", job.Username,
	)

	if err := w.file.Save(w.store.Snapshot()); err != nil {
		w.logger.WarnContext(ctx, "failed to persist after fact merge", "error", err)
	}
}
