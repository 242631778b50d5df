package models

import (
	"encoding/json"
	"time"
)

// Document is an entity as returned by the remote store.
type Document struct {
	Collection string
	ID         string
	Payload    json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Deleted marks a tombstone seen on a live subscription.
	Deleted bool
}

// Timestamp returns the document time used for ordering by sortField
// ("created_at" or "updated_at").
func (d *Document) Timestamp(sortField string) time.Time {
	if sortField == "created_at" {
		return d.CreatedAt
	}
	return d.UpdatedAt
}

// Query describes an ordered page request.
type Query struct {
	Collection string
	SortField  string
	Descending bool
	PageSize   int
	Cursor     string
}

// Page is one batch delivered by a subscription.
type Page struct {
	Documents  []*Document
	NextCursor string

	// Live is set for batches pushed after the initial page.
	Live bool
}
