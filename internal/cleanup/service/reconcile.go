package service

import (
	"context"
	"fmt"

	cleanuperrors "sweeper/internal/cleanup/errors"
	"sweeper/internal/cleanup/store"
	"sweeper/pkg/logger"
	"sweeper/pkg/metrics"
	"sweeper/pkg/model"
)

type CountSource string

const (
	CountSourceAggregate CountSource = "aggregate"
	CountSourceScan      CountSource = "scan"
)

// Reconciler recomputes a space's currentUserCount from its remaining active users.
type Reconciler struct {
	store      store.Store
	collection string
	log        *logger.Logger
	metrics    *metrics.SweepMetrics
}

func NewReconciler(s store.Store, activeUsersCollection string, log *logger.Logger, m *metrics.SweepMetrics) *Reconciler {
	return &Reconciler{
		store:      s,
		collection: activeUsersCollection,
		log:        log,
		metrics:    m,
	}
}

// Count prefers the server-side aggregate and falls back to a full scan when
// the aggregate is unavailable. Both paths return the exact count.
func (r *Reconciler) Count(ctx context.Context, ref model.CollectionRef) (int64, CountSource, error) {
	res := r.store.AggregateCount(ctx, ref)
	if res.OK() {
		return res.Count, CountSourceAggregate, nil
	}
	r.log.Debug("aggregate count unavailable, scanning",
		"collection", ref.String(),
		"reason", res.Err,
	)

	n, err := r.store.ScanCount(ctx, ref)
	if err != nil {
		return 0, CountSourceScan, err
	}
	return n, CountSourceScan, nil
}

// Reconcile counts the space's active users and stores the result on the space.
func (r *Reconciler) Reconcile(ctx context.Context, spaceID string) (int64, error) {
	ref := model.CollectionRef{Collection: r.collection, SpaceID: spaceID}

	count, source, err := r.Count(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", cleanuperrors.ErrReconcile, ref, err)
	}
	r.metrics.RecordCountSource(string(source))

	if err := r.store.SetUserCount(ctx, spaceID, count); err != nil {
		return 0, fmt.Errorf("%w: update space %s: %w", cleanuperrors.ErrReconcile, spaceID, err)
	}
	return count, nil
}
