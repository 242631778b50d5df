package models

import (
	"encoding/json"
	"time"
)

// OpKind is the mutation a PendingOperation replays.
type OpKind string

const (
	OpWrite  OpKind = "write"
	OpDelete OpKind = "delete"
)

// PendingOperation is a mutation not yet confirmed by the remote store.
type PendingOperation struct {
	OpID       string
	Collection string
	EntityID   string
	Kind       OpKind

	// Payload is the (possibly partial) JSON object to write; empty for deletes.
	Payload json.RawMessage
	Merge   bool

	CreatedAt time.Time
	Attempts  int
	LastError string
}
