package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	cleanuperrors "sweeper/internal/cleanup/errors"
	"sweeper/internal/cleanup/store"
	"sweeper/pkg/config"
	"sweeper/pkg/metrics"
	"sweeper/pkg/model"
)

type SweepService interface {
	// Run performs one sweep. The returned error is non-nil only when the
	// result status is error; a held lock yields a skipped result.
	Run(ctx context.Context, requestID string) (*model.SweepResult, error)
}

// Notifier is told about every finished sweep. Errors are logged, never
// propagated to the trigger.
type Notifier interface {
	SweepFinished(ctx context.Context, result *model.SweepResult) error
}

type Option func(*sweepService)

func WithMetrics(m *metrics.SweepMetrics) Option {
	return func(s *sweepService) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *sweepService) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *sweepService) { s.now = now }
}

type sweepService struct {
	cfg        *config.Config
	store      store.Store
	locker     *Locker
	deleter    *BatchDeleter
	reconciler *Reconciler
	metrics    *metrics.SweepMetrics
	notifier   Notifier
	now        func() time.Time
}

func NewSweepService(cfg *config.Config, s store.Store, lockStore store.LockStore, opts ...Option) SweepService {
	svc := &sweepService{
		cfg:   cfg,
		store: s,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.locker = NewLocker(lockStore, cfg.LockDocID, cfg.LockHolder, cfg.LockTTL(), cfg.Log)
	svc.locker.now = svc.now
	svc.deleter = NewBatchDeleter(s, cfg.BatchSize)
	svc.reconciler = NewReconciler(s, cfg.ActiveUsersCollection, cfg.Log, svc.metrics)
	return svc
}

type thresholds struct {
	activeUsers time.Time
	messages    time.Time
}

func (s *sweepService) Run(ctx context.Context, requestID string) (*model.SweepResult, error) {
	result := &model.SweepResult{RequestID: requestID}

	acquired, err := s.locker.Acquire(ctx)
	if err != nil {
		result.Status = model.SweepStatusError
		result.Error = err.Error()
		s.cfg.Log.ErrorEvent("cleanup_error", map[string]any{
			"request_id": requestID,
			"error":      err.Error(),
		})
		s.finish(ctx, result, 0)
		return result, err
	}
	if !acquired {
		result.Status = model.SweepStatusSkipped
		result.Reason = model.SkipReasonLockActive
		s.finish(ctx, result, 0)
		return result, nil
	}

	// Stop mutating before another process may take over the expired lock.
	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTTL())
	start := s.now()
	err = s.sweep(sweepCtx, requestID, start, &result.Stats)
	elapsed := s.now().Sub(start)
	cancel()

	if err != nil {
		result.Status = model.SweepStatusError
		result.Error = err.Error()
		fields := result.Stats.Fields()
		fields["request_id"] = requestID
		fields["error"] = err.Error()
		s.cfg.Log.ErrorEvent("cleanup_error", fields)
		s.finish(ctx, result, elapsed)
		return result, err
	}

	result.Status = model.SweepStatusOK
	result.Stats.DurationSeconds = model.RoundSeconds(elapsed.Seconds())
	fields := result.Stats.Fields()
	fields["request_id"] = requestID
	fields["duration_seconds"] = result.Stats.DurationSeconds
	s.cfg.Log.Event("cleanup_complete", fields)
	s.finish(ctx, result, elapsed)
	return result, nil
}

// sweep runs with the lock held and releases it on every return path.
func (s *sweepService) sweep(ctx context.Context, requestID string, start time.Time, stats *model.SweepStats) error {
	defer s.locker.Release(ctx)

	th := thresholds{
		activeUsers: start.Add(-s.cfg.ActiveUserWindow()).UTC(),
		messages:    start.Add(-s.cfg.MessageTTL()).UTC(),
	}
	s.cfg.Log.Event("cleanup_start", map[string]any{
		"request_id":        requestID,
		"database":          s.cfg.DatabaseID,
		"active_threshold":  th.activeUsers.Format(time.RFC3339),
		"message_threshold": th.messages.Format(time.RFC3339),
	})

	var spaceErr error
	err := s.store.StreamSpaces(ctx, func(space *model.Space) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.SpacesScanned++

		if err := s.sweepSpace(ctx, space.ID, th, stats); err != nil {
			stats.SpacesFailed++
			s.metrics.RecordSpace(true)

			s.cfg.Log.ErrorEvent("space_error", map[string]any{
				"request_id": requestID,
				"space_id":   space.ID,
				"policy":     s.cfg.SpaceErrorPolicy,
				"error":      err.Error(),
			})
			if s.cfg.ContinueOnSpaceError() {
				return nil
			}
			spaceErr = fmt.Errorf("%w %s: %w", cleanuperrors.ErrSpaceCleanup, space.ID, err)
			return spaceErr
		}

		s.metrics.RecordSpace(false)
		return nil
	})
	if err == nil {
		return nil
	}
	if spaceErr != nil {
		return spaceErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("sweep interrupted after %d spaces: %w", stats.SpacesScanned, err)
	}
	return fmt.Errorf("%w: %w", cleanuperrors.ErrSpaceIteration, err)
}

// sweepSpace deletes stale active users, reconciles the user count and then
// deletes expired messages. Reconciliation always runs, even when nothing was
// deleted, so a drifted count is repaired.
func (s *sweepService) sweepSpace(ctx context.Context, spaceID string, th thresholds, stats *model.SweepStats) error {
	usersRef := model.CollectionRef{Collection: s.cfg.ActiveUsersCollection, SpaceID: spaceID}
	usersDeleted, err := s.deleter.DeleteMatching(ctx, store.ExpiryQuery{
		Ref:    usersRef,
		Field:  model.FieldLastUpdate,
		Before: th.activeUsers,
	})
	if err != nil {
		return err
	}
	stats.ActiveUsersDeleted += usersDeleted
	if usersDeleted > 0 {
		stats.SpacesWithUserDeletions++
	}
	s.metrics.RecordDeleted(s.cfg.ActiveUsersCollection, usersDeleted)

	remaining, err := s.reconciler.Reconcile(ctx, spaceID)
	if err != nil {
		return err
	}

	messagesRef := model.CollectionRef{Collection: s.cfg.MessagesCollection, SpaceID: spaceID}
	messagesDeleted, err := s.deleter.DeleteMatching(ctx, store.ExpiryQuery{
		Ref:    messagesRef,
		Field:  model.FieldTimestamp,
		Before: th.messages,
	})
	if err != nil {
		return err
	}
	stats.MessagesDeleted += messagesDeleted
	if messagesDeleted > 0 {
		stats.SpacesWithMessageDeletions++
	}
	s.metrics.RecordDeleted(s.cfg.MessagesCollection, messagesDeleted)

	s.cfg.Log.Event("space_processed", map[string]any{
		"space_id":               spaceID,
		"deleted_active_users":   usersDeleted,
		"remaining_active_users": remaining,
		"deleted_messages":       messagesDeleted,
	})
	return nil
}

func (s *sweepService) finish(ctx context.Context, result *model.SweepResult, elapsed time.Duration) {
	s.metrics.RecordRun(result.Status, elapsed, s.now())

	if s.notifier == nil {
		return
	}
	if err := s.notifier.SweepFinished(context.WithoutCancel(ctx), result); err != nil {
		s.cfg.Log.Warn("Failed to publish sweep result",
			"request_id", result.RequestID,
			"status", result.Status,
			"error", err,
		)
	}
}
