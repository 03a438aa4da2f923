package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"sweeper/internal/cleanup/repository"
	"sweeper/internal/cleanup/service"
	mongoMigration "sweeper/internal/migrations/mongo"
	"sweeper/pkg/model"
	"sweeper/test/integration/testutil"
)

func TestSweep_DeletesExpiredAndReconciles(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo, cfg := env.Setup(t)
	defer env.Cleanup(t, mongo, cfg)

	ctx := context.Background()
	require.NoError(t, mongoMigration.RunMigration(ctx, cfg))

	now := time.Now().UTC()
	stale := now.Add(-2 * cfg.ActiveUserWindow())
	fresh := now.Add(-time.Minute)
	oldMessage := now.Add(-2 * cfg.MessageTTL())

	// Drifted count on purpose.
	mongo.InsertSpace(t, cfg.SpacesCollection, model.Space{ID: "s1", CurrentUserCount: 9})
	mongo.InsertActiveUsers(t, cfg.ActiveUsersCollection, "s1", 3, stale)
	mongo.InsertActiveUsers(t, cfg.ActiveUsersCollection, "s1", 2, fresh)
	mongo.InsertMessages(t, cfg.MessagesCollection, "s1", cfg.BatchSize+5, oldMessage)
	mongo.InsertMessages(t, cfg.MessagesCollection, "s1", 1, fresh)

	mongo.InsertSpace(t, cfg.SpacesCollection, model.Space{ID: "s2", CurrentUserCount: 1})
	mongo.InsertActiveUsers(t, cfg.ActiveUsersCollection, "s2", 1, fresh)

	svc := service.NewSweepService(cfg, repository.NewMongoSpaceRepository(cfg), repository.NewMongoLockRepository(cfg))

	result, err := svc.Run(ctx, "integration-1")
	require.NoError(t, err)
	assert.Equal(t, model.SweepStatusOK, result.Status)
	assert.Equal(t, int64(2), result.Stats.SpacesScanned)
	assert.Equal(t, int64(3), result.Stats.ActiveUsersDeleted)
	assert.Equal(t, int64(cfg.BatchSize+5), result.Stats.MessagesDeleted)
	assert.Equal(t, int64(1), result.Stats.SpacesWithUserDeletions)

	assert.Equal(t, int64(2), mongo.UserCount(t, cfg.SpacesCollection, "s1"))
	assert.Equal(t, int64(1), mongo.UserCount(t, cfg.SpacesCollection, "s2"))
	assert.Equal(t, int64(1), mongo.CountDocuments(t, cfg.MessagesCollection, bson.M{model.FieldSpaceID: "s1"}))
	assert.Zero(t, mongo.CountDocuments(t, cfg.LockCollection, bson.M{}), "lock must be released")

	second, err := svc.Run(ctx, "integration-2")
	require.NoError(t, err)
	assert.Equal(t, model.SweepStatusOK, second.Status)
	assert.Zero(t, second.Stats.ActiveUsersDeleted)
	assert.Zero(t, second.Stats.MessagesDeleted)
}

func TestSweep_SkipsWhileLockHeld(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo, cfg := env.Setup(t)
	defer env.Cleanup(t, mongo, cfg)

	ctx := context.Background()
	require.NoError(t, mongoMigration.RunMigration(ctx, cfg))

	now := time.Now().UTC()
	mongo.InsertLock(t, cfg.LockCollection, model.MaintenanceLock{
		ID:        cfg.LockDocID,
		Holder:    "other-instance",
		StartedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	mongo.InsertSpace(t, cfg.SpacesCollection, model.Space{ID: "s1"})
	mongo.InsertActiveUsers(t, cfg.ActiveUsersCollection, "s1", 2, now.Add(-2*cfg.ActiveUserWindow()))

	svc := service.NewSweepService(cfg, repository.NewMongoSpaceRepository(cfg), repository.NewMongoLockRepository(cfg))

	result, err := svc.Run(ctx, "integration-skip")
	require.NoError(t, err)
	assert.Equal(t, model.SweepStatusSkipped, result.Status)
	assert.Equal(t, model.SkipReasonLockActive, result.Reason)
	assert.Equal(t, int64(2), mongo.CountDocuments(t, cfg.ActiveUsersCollection, bson.M{}))
	assert.Equal(t, int64(1), mongo.CountDocuments(t, cfg.LockCollection, bson.M{"holder": "other-instance"}))
}

func TestSweep_TakesOverExpiredLock(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo, cfg := env.Setup(t)
	defer env.Cleanup(t, mongo, cfg)

	ctx := context.Background()
	require.NoError(t, mongoMigration.RunMigration(ctx, cfg))

	now := time.Now().UTC()
	mongo.InsertLock(t, cfg.LockCollection, model.MaintenanceLock{
		ID:        cfg.LockDocID,
		Holder:    "crashed-instance",
		StartedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	})

	svc := service.NewSweepService(cfg, repository.NewMongoSpaceRepository(cfg), repository.NewMongoLockRepository(cfg))

	result, err := svc.Run(ctx, "integration-takeover")
	require.NoError(t, err)
	assert.Equal(t, model.SweepStatusOK, result.Status)
	assert.Zero(t, mongo.CountDocuments(t, cfg.LockCollection, bson.M{}))
}
