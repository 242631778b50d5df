package models

import (
	"errors"
	"fmt"
	"time"
)

// CachedEntity is the typed view of a Record.
type CachedEntity[T any] struct {
	ID           string
	Payload      T
	LastSyncedAt time.Time
}

// Decode parses a single record.
func Decode[T any](rec *Record, parse func([]byte) (T, error)) (CachedEntity[T], error) {
	v, err := parse(rec.Payload)
	if err != nil {
		return CachedEntity[T]{}, fmt.Errorf("%s/%s: %w", rec.Collection, rec.ID, err)
	}
	return CachedEntity[T]{ID: rec.ID, Payload: v, LastSyncedAt: rec.LastSyncedAt}, nil
}

// DecodeAll parses recs in order. Records that fail to parse are skipped and
// their errors joined into the returned error; the parsed ones are still
// returned.
func DecodeAll[T any](recs []*Record, parse func([]byte) (T, error)) ([]CachedEntity[T], error) {
	out := make([]CachedEntity[T], 0, len(recs))
	var errs []error
	for _, r := range recs {
		e, err := Decode(r, parse)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, e)
	}
	return out, errors.Join(errs...)
}
