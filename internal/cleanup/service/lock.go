package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	cleanuperrors "sweeper/internal/cleanup/errors"
	"sweeper/internal/cleanup/store"
	"sweeper/pkg/logger"
	"sweeper/pkg/model"
)

// Locker guards a sweep with a store-backed lease. It is cooperative: only
// processes that go through Acquire are excluded.
type Locker struct {
	store  store.LockStore
	lockID string
	holder string
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// NewLocker builds a locker whose holder identity is unique to this process.
func NewLocker(lockStore store.LockStore, lockID, holderName string, ttl time.Duration, log *logger.Logger) *Locker {
	return &Locker{
		store:  lockStore,
		lockID: lockID,
		holder: holderName + "/" + uuid.NewString(),
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

func (l *Locker) Holder() string {
	return l.holder
}

// Acquire takes the lock unless an unexpired one exists. It returns false
// without error when another holder owns the lock.
func (l *Locker) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	var current *model.MaintenanceLock

	err := l.store.RunLockTransaction(ctx, func(ctx context.Context, tx store.LockTx) error {
		acquired = false

		existing, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		current = existing

		now := l.now().UTC()
		if existing.IsActive(now) {
			return nil
		}

		if err := tx.Put(ctx, &model.MaintenanceLock{
			ID:        l.lockID,
			Holder:    l.holder,
			StartedAt: now,
			ExpiresAt: now.Add(l.ttl),
		}); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		l.log.ErrorEvent("lock_error", map[string]any{"lock": l.lockID, "error": err.Error()})
		return false, fmt.Errorf("%w: %w", cleanuperrors.ErrLockUnavailable, err)
	}

	if !acquired {
		fields := map[string]any{"lock": l.lockID}
		if current != nil {
			fields["holder"] = current.Holder
			fields["expires_at"] = current.ExpiresAt.UTC().Format(time.RFC3339)
		}
		l.log.Event("lock_busy", fields)
		return false, nil
	}

	l.log.Event("lock_acquired", map[string]any{"lock": l.lockID, "holder": l.holder})
	return true, nil
}

// Release deletes the lock record. Failures are logged and swallowed; an
// orphaned lock expires after its TTL. Release ignores cancellation of ctx so
// that a timed-out request still frees the lock.
func (l *Locker) Release(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if err := l.store.DeleteLock(ctx); err != nil {
		l.log.ErrorEvent("lock_release_error", map[string]any{"lock": l.lockID, "error": err.Error()})
		return
	}
	l.log.Event("lock_released", map[string]any{"lock": l.lockID})
}
