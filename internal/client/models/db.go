// Package models defines the client-side records: what the local cache
// persists, what the sync queue stores, and what the remote store returns.
package models

import (
	"encoding/json"
	"time"
)

// Record is one cached entity as persisted by the local store.
type Record struct {
	Collection string
	ID         string

	// Payload is the raw JSON object exactly as last accepted.
	Payload json.RawMessage

	// SortAt is the collection's natural ordering timestamp.
	SortAt time.Time

	// LastSyncedAt is when the record was last confirmed against the remote
	// store (or written optimistically).
	LastSyncedAt time.Time

	// Seq is assigned on first insert and never changes, so records with
	// equal SortAt keep the order in which they were first seen.
	Seq int64
}
