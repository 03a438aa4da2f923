package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sweeper/internal/cleanup/store"
	"sweeper/pkg/config"
	mongotx "sweeper/pkg/db/mongo"
	"sweeper/pkg/model"
)

type mongoLockRepository struct {
	collection *mongo.Collection
	lockID     string
	txManager  mongotx.TransactionManager
}

// NewMongoLockRepository returns the Mongo implementation of store.LockStore
// for the single lock document configured in cfg.
func NewMongoLockRepository(cfg *config.Config) store.LockStore {
	db := cfg.Client.Mongo.Database(cfg.DatabaseID)
	return &mongoLockRepository{
		collection: db.Collection(cfg.LockCollection),
		lockID:     cfg.LockDocID,
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// RunLockTransaction runs fn in a snapshot transaction. Concurrent writers
// conflict and the driver retries fn, which then reads the winner's lock. A
// duplicate key on upsert means another process created the lock first; fn
// did not complete, so it is reported as a normal, non-acquiring outcome.
func (r *mongoLockRepository) RunLockTransaction(ctx context.Context, fn store.LockTxFunc) error {
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx, &mongoLockTx{collection: r.collection, lockID: r.lockID})
	})
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *mongoLockRepository) DeleteLock(ctx context.Context) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": r.lockID}); err != nil {
		return fmt.Errorf("failed to delete lock %s: %w", r.lockID, err)
	}
	return nil
}

type mongoLockTx struct {
	collection *mongo.Collection
	lockID     string
}

func (tx *mongoLockTx) Get(ctx context.Context) (*model.MaintenanceLock, error) {
	var lock model.MaintenanceLock
	err := tx.collection.FindOne(ctx, bson.M{"_id": tx.lockID}).Decode(&lock)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock %s: %w", tx.lockID, err)
	}
	return &lock, nil
}

func (tx *mongoLockTx) Put(ctx context.Context, lock *model.MaintenanceLock) error {
	_, err := tx.collection.ReplaceOne(ctx,
		bson.M{"_id": tx.lockID},
		lock,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write lock %s: %w", tx.lockID, err)
	}
	return nil
}
