package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"whisker/pkg/whisker"
)

const (
	// DefaultMaxTurnPairs is the default rolling-window size in
	// (user, assistant) pairs.
	DefaultMaxTurnPairs = 10
	// DefaultMaxNotesChars is the default hard cap on long-term notes text.
	DefaultMaxNotesChars = 1000
	// DefaultTTL is the default inactivity duration before a record is
	// evicted entirely.
	DefaultTTL = 30 * 24 * time.Hour
)

// Option mutates store configuration.
type Option func(*Store)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(store *Store) {
		if logger != nil {
			store.logger = logger
		}
	}
}

// WithMaxTurnPairs sets the per-user rolling window size in turn pairs.
func WithMaxTurnPairs(pairs int) Option {
	return func(store *Store) {
		if pairs > 0 {
			store.maxTurnPairs = pairs
		}
	}
}

// WithMaxNotesChars sets the hard cap on long-term notes length.
func WithMaxNotesChars(chars int) Option {
	return func(store *Store) {
		if chars > 0 {
			store.maxNotesChars = chars
		}
	}
}

func withClock(clock func() time.Time) Option {
	return func(store *Store) {
		if clock != nil {
			store.clock = clock
		}
	}
}

// Store owns every per-user memory record. All mutating operations are
// short, non-suspending critical sections under one mutex, so concurrent
// turns and background fact merges cannot corrupt a record.
type Store struct {
	logger        *slog.Logger
	maxTurnPairs  int
	maxNotesChars int
	clock         func() time.Time

	mu      sync.Mutex
	records map[int64]*Record
}

// NewStore creates an empty memory store.
func NewStore(options ...Option) *Store {
	store := &Store{
		logger:        slog.Default(),
		maxTurnPairs:  DefaultMaxTurnPairs,
		maxNotesChars: DefaultMaxNotesChars,
		clock:         time.Now,
		records:       make(map[int64]*Record),
	}
	for _, option := range options {
		option(store)
	}

	return store
}

// GetOrCreate returns a copy of the record for userID, creating an empty one
// on first access. A non-empty username always refreshes the stored label.
// GetOrCreate never fails.
func (s *Store) GetOrCreate(userID int64, username string) Record {
	s.mu.Lock()
	record := s.ensureLocked(userID)
	if trimmed := strings.TrimSpace(username); trimmed != "" {
		record.Username = trimmed
	}
	cloned := cloneRecord(*record)
	s.mu.Unlock()

	return cloned
}

// Get returns a copy of the record for userID without creating one.
func (s *Store) Get(userID int64) (Record, bool) {
	s.mu.Lock()
	record, found := s.records[userID]
	if !found {
		s.mu.Unlock()
		return Record{}, false
	}
	cloned := cloneRecord(*record)
	s.mu.Unlock()

	return cloned, true
}

// AddExchange appends one completed (user, assistant) pair to the rolling
// window, stamps the record as seen now, and trims the window to its cap.
// Persistence is the caller's responsibility.
func (s *Store) AddExchange(userID int64, userText, assistantText string) {
	s.mu.Lock()
	record := s.ensureLocked(userID)
	record.RecentTurns = append(record.RecentTurns,
		whisker.Turn{Role: whisker.RoleUser, Content: userText},
		whisker.Turn{Role: whisker.RoleAssistant, Content: assistantText},
	)
	record.LastSeen = s.now()
	s.trimRecentLocked(record)
	s.mu.Unlock()
}

// MergeNotes appends newly extracted facts to the record's long-term notes,
// then truncates to the configured cap keeping the oldest (prefix) content.
// Empty input and the no-new-facts marker are no-ops.
func (s *Store) MergeNotes(userID int64, newFacts string) {
	trimmed := strings.TrimSpace(newFacts)
	if trimmed == "" || strings.EqualFold(trimmed, whisker.NoNewFactsMarker) {
		return
	}

	s.mu.Lock()
	record := s.ensureLocked(userID)
	merged := trimmed
	if record.LongTermNotes != "" {
		merged = record.LongTermNotes + "\n" + trimmed
	}
	record.LongTermNotes = truncateRunes(merged, s.maxNotesChars)
	s.mu.Unlock()
}

// Clear wipes the record's rolling window and long-term notes while keeping
// the record and its last-seen timestamp, so the identity survives until it
// expires naturally. It reports whether a record existed.
func (s *Store) Clear(userID int64) bool {
	s.mu.Lock()
	record, exists := s.records[userID]
	if exists {
		record.RecentTurns = nil
		record.LongTermNotes = ""
	}
	s.mu.Unlock()

	return exists
}

// Export returns a read-only serialized projection of one record, and
// whether the record exists.
func (s *Store) Export(userID int64) (RecordSnapshot, bool) {
	s.mu.Lock()
	record, exists := s.records[userID]
	if !exists {
		s.mu.Unlock()
		return RecordSnapshot{}, false
	}
	snapshot := snapshotFromRecord(*record)
	s.mu.Unlock()

	return snapshot, true
}

// ImportRecord replaces one record wholesale from a serialized snapshot.
// The payload must be a well-formed JSON object carrying a user_id field;
// malformed input leaves the store unchanged. An absent last_seen defaults
// to now so a freshly imported record is not immediately expirable.
func (s *Store) ImportRecord(userID int64, raw []byte) error {
	var payload struct {
		UserID         *int64         `json:"user_id"`
		Username       string         `json:"username"`
		RecentMessages []TurnSnapshot `json:"recent_messages"`
		LongTermNotes  string         `json:"long_term_notes"`
		LastSeen       *epochSeconds  `json:"last_seen"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("import record: invalid json: %w", err)
	}
	if payload.UserID == nil {
		return fmt.Errorf("import record: missing user_id field")
	}

	record := recordFromSnapshot(userID, RecordSnapshot{
		Username:       payload.Username,
		RecentMessages: payload.RecentMessages,
		LongTermNotes:  payload.LongTermNotes,
	})
	if payload.LastSeen != nil {
		record.LastSeen = payload.LastSeen.time()
	} else {
		record.LastSeen = s.now()
	}

	s.mu.Lock()
	s.records[userID] = &record
	s.mu.Unlock()

	return nil
}

// ImportAll replaces records from a serialized full-store snapshot: a JSON
// object keyed by stringified user identity. Individually malformed keys and
// values are skipped, not fatal; only the count of imported records is
// reported. A payload that is not a JSON object leaves the store unchanged.
func (s *Store) ImportAll(raw []byte) (int, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("import all: expected a json object keyed by user id: %w", err)
	}

	imported := 0
	s.mu.Lock()
	for key, rawRecord := range payload {
		userID, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			s.logger.Warn("skipping snapshot entry with non-integer key", "key", key)
			continue
		}

		var snapshot RecordSnapshot
		if err := json.Unmarshal(rawRecord, &snapshot); err != nil {
			s.logger.Warn("skipping malformed snapshot entry", "key", key, "error", err)
			continue
		}

		record := recordFromSnapshot(userID, snapshot)
		s.records[userID] = &record
		imported++
	}
	s.mu.Unlock()

	return imported, nil
}

// Snapshot returns the complete serialized state of the store.
func (s *Store) Snapshot() StoreSnapshot {
	s.mu.Lock()
	snapshot := make(StoreSnapshot, len(s.records))
	for userID, record := range s.records {
		snapshot[strconv.FormatInt(userID, 10)] = snapshotFromRecord(*record)
	}
	s.mu.Unlock()

	return snapshot
}

// Restore replaces the store's contents from a full snapshot. Entries with
// non-integer keys are skipped.
func (s *Store) Restore(snapshot StoreSnapshot) {
	s.mu.Lock()
	s.records = make(map[int64]*Record, len(snapshot))
	for key, recordSnapshot := range snapshot {
		userID, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			s.logger.Warn("skipping snapshot entry with non-integer key", "key", key)
			continue
		}
		record := recordFromSnapshot(userID, recordSnapshot)
		s.records[userID] = &record
	}
	s.mu.Unlock()
}

// PruneExpired evicts every record whose last exchange is older than ttl.
// Records that have never completed an exchange are never evicted. The
// evicted user ids are returned so the caller can persist the sweep.
func (s *Store) PruneExpired(ttl time.Duration) []int64 {
	if ttl <= 0 {
		return nil
	}

	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	evicted := make([]int64, 0)
	for userID, record := range s.records {
		if record.LastSeen.IsZero() {
			continue
		}
		if record.LastSeen.Before(cutoff) {
			delete(s.records, userID)
			evicted = append(evicted, userID)
		}
	}
	s.mu.Unlock()

	return evicted
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	count := len(s.records)
	s.mu.Unlock()

	return count
}

func (s *Store) ensureLocked(userID int64) *Record {
	record, exists := s.records[userID]
	if !exists {
		record = &Record{UserID: userID}
		s.records[userID] = record
		s.logger.Debug("created memory record", "user_id", userID)
	}

	return record
}

func (s *Store) trimRecentLocked(record *Record) {
	maxEntries := s.maxTurnPairs * 2
	if len(record.RecentTurns) <= maxEntries {
		return
	}

	trimmed := record.RecentTurns[len(record.RecentTurns)-maxEntries:]
	record.RecentTurns = append([]whisker.Turn(nil), trimmed...)
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func truncateRunes(value string, max int) string {
	if utf8.RuneCountInString(value) <= max {
		return value
	}

	runes := []rune(value)

	return string(runes[:max])
}
