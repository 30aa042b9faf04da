package whisker

import "context"

// NoNewFactsMarker is the sentinel an Extractor returns when the latest
// exchange contains nothing worth remembering. Matched case-insensitively.
const NoNewFactsMarker = "NONE"

// Completer produces one assistant reply for a new user message.
//
// systemContext carries the durable per-user memory block (empty when the
// user has none); recent is the rolling window oldest-first, ready to splice
// in immediately before the new message.
type Completer interface {
	Complete(ctx context.Context, systemContext string, recent []Turn, newMessage string) (string, error)
}

// Extractor proposes new durable facts from one completed exchange.
//
// It returns a short bullet list of facts that are not already present in
// existingNotes, or NoNewFactsMarker when there is nothing new.
type Extractor interface {
	Extract(ctx context.Context, existingNotes, userMessage, assistantMessage string) (string, error)
}
