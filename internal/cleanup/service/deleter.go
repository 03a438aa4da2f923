package service

import (
	"context"
	"fmt"

	cleanuperrors "sweeper/internal/cleanup/errors"
	"sweeper/internal/cleanup/store"
	"sweeper/pkg/config"
)

// BatchDeleter removes every document matching a query, one bounded atomic
// batch at a time.
type BatchDeleter struct {
	store    store.Store
	pageSize int
}

func NewBatchDeleter(s store.Store, pageSize int) *BatchDeleter {
	if pageSize <= 0 {
		pageSize = config.DefaultBatchSize
	}
	if pageSize > config.MaxBatchSize {
		pageSize = config.MaxBatchSize
	}
	return &BatchDeleter{store: s, pageSize: pageSize}
}

func (d *BatchDeleter) PageSize() int {
	return d.pageSize
}

// DeleteMatching deletes documents matching q until none remain and returns
// the total deleted. No cursor is kept between rounds: deleted documents stop
// matching, so each round re-runs the same query. On error nothing is
// returned for the batches already committed; they stay deleted.
func (d *BatchDeleter) DeleteMatching(ctx context.Context, q store.ExpiryQuery) (int64, error) {
	if q.Limit <= 0 || q.Limit > d.pageSize {
		q.Limit = d.pageSize
	}

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %s after %d deleted: %w", cleanuperrors.ErrDeleteBatch, q.Ref, total, err)
		}

		ids, err := d.store.FindExpired(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("%w: query %s after %d deleted: %w", cleanuperrors.ErrDeleteBatch, q.Ref, total, err)
		}
		if len(ids) == 0 {
			return total, nil
		}

		n, err := d.store.DeleteBatch(ctx, q.Ref, ids)
		if err != nil {
			return 0, fmt.Errorf("%w: delete %s after %d deleted: %w", cleanuperrors.ErrDeleteBatch, q.Ref, total, err)
		}
		total += n
	}
}
