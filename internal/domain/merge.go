package domain

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fitsync/internal/common"
)

// MergeObjects applies patch on top of base, one level deep: keys present in
// patch replace those in base and a null value removes the key. Both sides
// must be JSON objects; an empty base is treated as {}.
func MergeObjects(base, patch []byte) ([]byte, error) {
	var p map[string]json.RawMessage
	if err := json.Unmarshal(patch, &p); err != nil || p == nil {
		return nil, fmt.Errorf("%w: patch is not a JSON object", ErrInvalidPayload)
	}

	b := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &b); err != nil || b == nil {
			return nil, fmt.Errorf("%w: base is not a JSON object", ErrInvalidPayload)
		}
	}

	for k, v := range p {
		if string(v) == "null" {
			delete(b, k)
			continue
		}
		b[k] = v
	}
	return json.Marshal(b)
}

// IsObject reports whether raw is a JSON object.
func IsObject(raw []byte) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(raw, &m) == nil && m != nil
}

// MergeBase is the document a patch is merged onto when no version of the
// entity exists yet. Profiles are keyed by email, so a new profile starts as
// {"email": id}; other collections start empty.
func MergeBase(collection, id string) []byte {
	if collection != common.CollectionUsers {
		return nil
	}
	b, _ := json.Marshal(map[string]string{"email": id})
	return b
}
