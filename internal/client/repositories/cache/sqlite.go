package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
)

// ErrUnknownSortKey is returned by QueryAll for a column it does not order by.
var ErrUnknownSortKey = errors.New("unknown sort key")

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts or updates a record by (collection, id). The seq column is
// only set on insert.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.Record) error {
	if len(rec.Payload) == 0 {
		return fmt.Errorf("upsert %s/%s: empty payload", rec.Collection, rec.ID)
	}

	query := `INSERT INTO cache_entries (collection, id, payload, sort_at, last_synced_at, seq)
			VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM cache_entries))
			ON CONFLICT(collection, id) DO UPDATE SET payload = excluded.payload,
				sort_at = excluded.sort_at,
				last_synced_at = excluded.last_synced_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Collection, rec.ID, []byte(rec.Payload), toNano(rec.SortAt), toNano(rec.LastSyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertBatch(ctx context.Context, recs []*models.Record) error {
	for _, rec := range recs {
		if err := r.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Evict loads the collection, applies match and deletes the matching ids.
func (r *SQLiteRepository) Evict(ctx context.Context, collection string, match func(*models.Record) bool) (int, error) {
	recs, err := r.QueryAll(ctx, collection, SortByID, false)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range recs {
		if !match(rec) {
			continue
		}
		res, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE collection = ? AND id = ?`, collection, rec.ID)
		if err != nil {
			return removed, fmt.Errorf("failed to evict %s/%s: %w", collection, rec.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("failed to get rows affected: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (r *SQLiteRepository) QueryAll(ctx context.Context, collection string, key SortKey, desc bool) ([]*models.Record, error) {
	switch key {
	case SortByTimestamp, SortBySyncedAt, SortByID:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	// key is whitelisted above
	query := `SELECT collection, id, payload, sort_at, last_synced_at, seq FROM cache_entries
			WHERE collection = ? ORDER BY ` + string(key) + ` ` + dir + `, seq ASC`
	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", collection, err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByKey(ctx context.Context, collection, id string) (*models.Record, error) {
	query := `SELECT collection, id, payload, sort_at, last_synced_at, seq FROM cache_entries
			WHERE collection = ? AND id = ?`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, collection string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec            models.Record
		payload        []byte
		sortAt, synced int64
	)
	if err := s.Scan(&rec.Collection, &rec.ID, &payload, &sortAt, &synced, &rec.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	rec.Payload = payload
	rec.SortAt = fromNano(sortAt)
	rec.LastSyncedAt = fromNano(synced)
	return &rec, nil
}

func toNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
