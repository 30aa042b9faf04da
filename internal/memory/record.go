package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"whisker/pkg/whisker"
)

// Record is the per-user memory value: rolling exchange window, long-term
// notes, and the timestamp of the most recent completed exchange.
type Record struct {
	// UserID is the stable chat platform identity. Primary key.
	UserID int64
	// Username is an opportunistically updated human-readable label.
	Username string
	// RecentTurns is the rolling conversation window, oldest-first. Turns
	// are appended strictly in (user, assistant) pairs.
	RecentTurns []whisker.Turn
	// LongTermNotes is free-form bullet text extracted across sessions,
	// capped in size with prefix-preserving truncation.
	LongTermNotes string
	// LastSeen is the time of the most recent completed exchange. The zero
	// time means the user has never completed one.
	LastSeen time.Time
}

// RecordSnapshot is the serialized form of one Record, matching the on-disk
// document layout field for field.
type RecordSnapshot struct {
	UserID         int64          `json:"user_id"`
	Username       string         `json:"username"`
	RecentMessages []TurnSnapshot `json:"recent_messages"`
	LongTermNotes  string         `json:"long_term_notes"`
	LastSeen       epochSeconds   `json:"last_seen"`
}

// TurnSnapshot is the serialized form of one role-tagged turn.
type TurnSnapshot struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StoreSnapshot is the complete serialized store keyed by stringified user
// identity, exactly the shape of the backing file's top-level document.
type StoreSnapshot map[string]RecordSnapshot

// epochSeconds is a unix-seconds timestamp that tolerates fractional epoch
// values on decode, so snapshot files written with float timestamps still
// load.
type epochSeconds int64

// UnmarshalJSON accepts both integer and fractional epoch numbers.
func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("unmarshal epoch seconds: %w", err)
	}

	if parsed, err := number.Int64(); err == nil {
		*e = epochSeconds(parsed)
		return nil
	}

	parsed, err := number.Float64()
	if err != nil {
		return fmt.Errorf("unmarshal epoch seconds: %w", err)
	}
	*e = epochSeconds(int64(parsed))

	return nil
}

func (e epochSeconds) time() time.Time {
	if e <= 0 {
		return time.Time{}
	}

	return time.Unix(int64(e), 0).UTC()
}

func epochFromTime(value time.Time) epochSeconds {
	if value.IsZero() {
		return 0
	}

	return epochSeconds(value.Unix())
}

func snapshotFromRecord(record Record) RecordSnapshot {
	messages := make([]TurnSnapshot, 0, len(record.RecentTurns))
	for _, turn := range record.RecentTurns {
		messages = append(messages, TurnSnapshot{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	return RecordSnapshot{
		UserID:         record.UserID,
		Username:       record.Username,
		RecentMessages: messages,
		LongTermNotes:  record.LongTermNotes,
		LastSeen:       epochFromTime(record.LastSeen),
	}
}

func recordFromSnapshot(userID int64, snapshot RecordSnapshot) Record {
	turns := make([]whisker.Turn, 0, len(snapshot.RecentMessages))
	for _, message := range snapshot.RecentMessages {
		turns = append(turns, whisker.Turn{
			Role:    whisker.Role(message.Role),
			Content: message.Content,
		})
	}

	return Record{
		UserID:        userID,
		Username:      snapshot.Username,
		RecentTurns:   turns,
		LongTermNotes: snapshot.LongTermNotes,
		LastSeen:      snapshot.LastSeen.time(),
	}
}

func cloneRecord(record Record) Record {
	cloned := record
	cloned.RecentTurns = cloneTurns(record.RecentTurns)

	return cloned
}

func cloneTurns(turns []whisker.Turn) []whisker.Turn {
	if turns == nil {
		return nil
	}

	return append([]whisker.Turn(nil), turns...)
}
