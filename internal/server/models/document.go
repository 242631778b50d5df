package models

import (
	"encoding/json"
	"time"
)

// Document is one row of the documents table. Owner is the email of the
// account allowed to change it; it is empty for server-managed collections.
// Seq breaks timestamp ties for keyset pagination.
type Document struct {
	Collection string
	ID         string
	Owner      string
	Payload    json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Seq        int64
}
