// Package cache is the client's local store: one table of cached entities
// keyed by (collection, id), each carrying its raw JSON payload, a sort
// timestamp and the time it was last confirmed against the remote store.
//
// The SQLite implementation works over dbx.DBTX, so a whole batch of
// upserts and evictions can be applied inside a single transaction:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    repo := cache.NewSQLiteRepository(tx)
//	    if err := repo.UpsertBatch(ctx, recs); err != nil {
//	        return err
//	    }
//	    _, err := repo.Evict(ctx, "posts", stale)
//	    return err
//	})
package cache
