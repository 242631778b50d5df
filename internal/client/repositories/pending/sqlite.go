package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	if op.OpID == "" {
		return fmt.Errorf("enqueue %s/%s: empty op id", op.Collection, op.EntityID)
	}
	created := op.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	query := `INSERT INTO pending_operations (op_id, collection, entity_id, kind, payload, merge, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(op_id) DO UPDATE SET payload = excluded.payload, merge = excluded.merge
	`
	_, err := r.db.ExecContext(ctx, query,
		op.OpID, op.Collection, op.EntityID, string(op.Kind), []byte(op.Payload), boolToInt(op.Merge), created.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to enqueue op %s: %w", op.OpID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.PendingOperation, error) {
	query := `SELECT op_id, collection, entity_id, kind, payload, merge, created_at, attempts, last_error
			FROM pending_operations ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.PendingOperation
	for rows.Next() {
		var (
			op      models.PendingOperation
			kind    string
			payload []byte
			merge   int
			created int64
		)
		if err := rows.Scan(&op.OpID, &op.Collection, &op.EntityID, &kind, &payload, &merge, &created, &op.Attempts, &op.LastError); err != nil {
			return nil, err
		}
		op.Kind = models.OpKind(kind)
		op.Payload = payload
		op.Merge = merge != 0
		op.CreatedAt = time.Unix(0, created).UTC()
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, opID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_operations WHERE op_id = ?`, opID); err != nil {
		return fmt.Errorf("failed to delete op %s: %w", opID, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAttempt(ctx context.Context, opID, lastErr string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_operations SET attempts = attempts + 1, last_error = ? WHERE op_id = ?`, lastErr, opID)
	if err != nil {
		return fmt.Errorf("failed to update op %s: %w", opID, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_operations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear pending operations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
