package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whisker/internal/memory"
	"whisker/pkg/whisker"
)

const defaultCompleteTimeout = 60 * time.Second

// ServiceOption mutates chat service configuration.
type ServiceOption func(*Service)

// WithServiceLogger injects a structured logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(service *Service) {
		if logger != nil {
			service.logger = logger
		}
	}
}

// WithCompleteTimeout bounds one completion collaborator call.
func WithCompleteTimeout(timeout time.Duration) ServiceOption {
	return func(service *Service) {
		if timeout > 0 {
			service.timeout = timeout
		}
	}
}

// Service runs the memory-aware turn pipeline: read the user's memory, get a
// persona reply, record the exchange, persist, and hand the exchange to the
// background fact extractor.
type Service struct {
	store     *memory.Store
	file      *memory.SnapshotFile
	completer whisker.Completer
	worker    *memory.ExtractWorker
	logger    *slog.Logger
	timeout   time.Duration
}

// NewService creates a chat service over one memory store.
func NewService(
	store *memory.Store,
	file *memory.SnapshotFile,
	completer whisker.Completer,
	worker *memory.ExtractWorker,
	options ...ServiceOption,
) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("new chat service: nil store")
	}
	if file == nil {
		return nil, fmt.Errorf("new chat service: nil snapshot file")
	}
	if completer == nil {
		return nil, fmt.Errorf("new chat service: nil completer")
	}
	if worker == nil {
		return nil, fmt.Errorf("new chat service: nil extract worker")
	}

	service := &Service{
		store:     store,
		file:      file,
		completer: completer,
		worker:    worker,
		logger:    slog.Default(),
		timeout:   defaultCompleteTimeout,
	}
	for _, option := range options {
		option(service)
	}

	return service, nil
}

// HandleMessage processes one inbound user message and returns the reply to
// send. Memory is only mutated after the completer succeeds, so a failed
// completion leaves the user's record exactly as it was.
func (s *Service) HandleMessage(
	ctx context.Context,
	userID int64,
	username, text string,
) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("handle message: empty message")
	}

	record := s.store.GetOrCreate(userID, username)

	completeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.completer.Complete(
		completeCtx,
		memory.NotesBlock(record),
		memory.RecentTurns(record),
		trimmed,
	)
	if err != nil {
		return "", fmt.Errorf("handle message: %w", err)
	}

	s.store.AddExchange(userID, trimmed, reply)
	if err := s.file.Save(s.store.Snapshot()); err != nil {
		s.logger.WarnContext(ctx, "failed to persist after exchange",
			"user_id", userID,
			"error", err,
		)
	}

	s.worker.Enqueue(memory.ExtractJob{
		UserID:           userID,
		Username:         username,
		UserMessage:      trimmed,
		AssistantMessage: reply,
		ExistingNotes:    record.LongTermNotes,
	})

	return reply, nil
}

// Forget wipes the user's conversational memory. It reports whether there was
// anything to forget; the record itself survives a wipe, so a repeat call
// reports false until the user talks again.
func (s *Service) Forget(ctx context.Context, userID int64) bool {
	record, found := s.store.Get(userID)
	if !found {
		return false
	}
	if len(record.RecentTurns) == 0 && record.LongTermNotes == "" {
		return false
	}

	s.store.Clear(userID)
	if err := s.file.Save(s.store.Snapshot()); err != nil {
		s.logger.WarnContext(ctx, "failed to persist after forget",
			"user_id", userID,
			"error", err,
		)
	}

	return true
}

// ExportMemory returns the user's record as pretty-printed JSON in the
// persistence wire shape. It reports false when no record exists.
func (s *Service) ExportMemory(userID int64) (string, bool) {
	snapshot, found := s.store.Export(userID)
	if !found {
		return "", false
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.logger.Warn("failed to render memory export", "user_id", userID, "error", err)
		return "", false
	}

	return string(data), true
}
