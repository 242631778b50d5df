package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{"collection", "id", "owner", "payload", "created_at", "updated_at", "seq"}

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	d := &models.Document{}
	var payload []byte
	if err := row.Scan(&d.Collection, &d.ID, &d.Owner, &payload, &d.CreatedAt, &d.UpdatedAt, &d.Seq); err != nil {
		return nil, err
	}
	d.Payload = payload
	return d, nil
}

func (r *PostgresRepository) get(ctx context.Context, collection, id string, lock bool) (*models.Document, error) {
	b := psql.Select(columns...).From("documents").Where(sq.Eq{"collection": collection, "id": id})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	return r.get(ctx, collection, id, false)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, collection, id string) (*models.Document, error) {
	return r.get(ctx, collection, id, true)
}

func (r *PostgresRepository) Upsert(ctx context.Context, d *models.Document) (*models.Document, error) {
	query := `
		INSERT INTO documents (collection, id, owner, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
		RETURNING owner, created_at, updated_at, seq
	`
	out := *d
	err := r.db.QueryRowContext(ctx, query, d.Collection, d.ID, d.Owner, []byte(d.Payload)).
		Scan(&out.Owner, &out.CreatedAt, &out.UpdatedAt, &out.Seq)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id string) (bool, error) {
	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`
	res, err := r.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// QueryOrdered returns up to q.Limit rows ordered by (sort field, seq) in the
// requested direction, starting strictly after q.After.
func (r *PostgresRepository) QueryOrdered(ctx context.Context, q Query) ([]*models.Document, error) {
	if q.SortField != SortCreatedAt && q.SortField != SortUpdatedAt {
		return nil, fmt.Errorf("%w: cannot sort by %q", common.ErrorInvalidArgument, q.SortField)
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", common.ErrorInvalidArgument)
	}

	dir, cmp := "ASC", ">"
	if q.Descending {
		dir, cmp = "DESC", "<"
	}

	b := psql.Select(columns...).From("documents").Where(sq.Eq{"collection": q.Collection})
	if q.After != nil {
		b = b.Where(sq.Expr(fmt.Sprintf("(%s, seq) %s (?, ?)", q.SortField, cmp), q.After.T, q.After.Seq))
	}
	b = b.OrderBy(q.SortField+" "+dir, "seq "+dir).Limit(uint64(q.Limit))

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
