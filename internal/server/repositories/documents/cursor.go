package documents

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
)

// Cursor is a keyset position: the sort timestamp and seq of a row.
type Cursor struct {
	T   time.Time `json:"t"`
	Seq int64     `json:"seq"`
}

// CursorAfter returns the position of d under sortField.
func CursorAfter(d *models.Document, sortField string) *Cursor {
	t := d.CreatedAt
	if sortField == SortUpdatedAt {
		t = d.UpdatedAt
	}
	return &Cursor{T: t, Seq: d.Seq}
}

// Encode renders c as an opaque base64url token.
func (c *Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token made by Encode. Malformed tokens yield
// common.ErrorInvalidArgument.
func DecodeCursor(s string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrorInvalidArgument)
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.T.IsZero() {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrorInvalidArgument)
	}
	return &c, nil
}
