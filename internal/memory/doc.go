// Package memory maintains per-user conversational memory: a short rolling
// window of recent exchanges plus a compact capped block of long-term notes.
// It owns the synchronized store of records, the JSON snapshot persistence
// with atomic replace, TTL-based retention, context projection for outbound
// chat requests, and the background fact-extraction worker.
package memory
