package reconciler

import "errors"

var (
	// ErrPaginationOffline rejects a cursor request while offline: the
	// local store only holds what was already loaded.
	ErrPaginationOffline = errors.New("pagination requires a connection")
	// ErrLocalStore marks a failed local write in WriteResult.LocalErr.
	ErrLocalStore = errors.New("local store write failed")
	ErrReadOnly   = errors.New("collection is read-only")
	ErrOffline    = errors.New("offline")
)
