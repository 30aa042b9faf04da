package memory

import "whisker/pkg/whisker"

const notesBlockLabel = "[Memory about this user]"

// NotesBlock projects a record's long-term notes into one labeled text block
// for the outbound request's system layer. It returns "" when the user has
// no notes yet.
func NotesBlock(record Record) string {
	if record.LongTermNotes == "" {
		return ""
	}

	return notesBlockLabel + "\n" + record.LongTermNotes
}

// RecentTurns returns the record's rolling window verbatim, oldest-first,
// ready to splice into an outbound conversation payload immediately before
// the new user turn. The returned slice is a copy.
func RecentTurns(record Record) []whisker.Turn {
	return cloneTurns(record.RecentTurns)
}
