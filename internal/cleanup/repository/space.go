package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sweeper/internal/cleanup/store"
	"sweeper/pkg/config"
	mongotx "sweeper/pkg/db/mongo"
	"sweeper/pkg/model"
)

// ErrSpaceNotFound is returned when a count update targets a missing space.
var ErrSpaceNotFound = errors.New("space not found")

type mongoSpaceRepository struct {
	cfg       *config.Config
	db        *mongo.Database
	spaces    *mongo.Collection
	txManager mongotx.TransactionManager
}

// NewMongoSpaceRepository returns the Mongo implementation of store.Store.
// Child documents live in top-level collections and reference their space
// through the spaceId field.
func NewMongoSpaceRepository(cfg *config.Config) store.Store {
	db := cfg.Client.Mongo.Database(cfg.DatabaseID)
	return &mongoSpaceRepository{
		cfg:       cfg,
		db:        db,
		spaces:    db.Collection(cfg.SpacesCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function.
func (r *mongoSpaceRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSpaceRepository) children(ref model.CollectionRef) *mongo.Collection {
	return r.db.Collection(ref.Collection)
}

// StreamSpaces walks the spaces collection with a cursor so that memory stays
// bounded regardless of how many spaces exist. The cursor lives as long as the
// sweep, so no per-call timeout is applied.
func (r *mongoSpaceRepository) StreamSpaces(ctx context.Context, fn func(space *model.Space) error) error {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1, model.FieldCurrentUserCount: 1})

	cursor, err := r.spaces.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to query spaces: %w", err)
	}
	defer cursor.Close(context.WithoutCancel(ctx))

	for cursor.Next(ctx) {
		var space model.Space
		if err := cursor.Decode(&space); err != nil {
			return fmt.Errorf("failed to decode space: %w", err)
		}
		if err := fn(&space); err != nil {
			return err
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("space cursor failed: %w", err)
	}
	return nil
}

func expiryFilter(q store.ExpiryQuery) bson.M {
	return bson.M{
		model.FieldSpaceID: q.Ref.SpaceID,
		q.Field:            bson.M{"$lt": q.Before.UTC()},
	}
}

func expiryFindOptions(q store.ExpiryQuery) *options.FindOptions {
	order := 1
	if q.Order == store.Descending {
		order = -1
	}
	return options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: q.Field, Value: order}}).
		SetLimit(int64(q.Limit))
}

func (r *mongoSpaceRepository) FindExpired(ctx context.Context, q store.ExpiryQuery) ([]any, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.children(q.Ref).Find(ctx, expiryFilter(q), expiryFindOptions(q))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Ref, err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID any `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s ids: %w", q.Ref, err)
	}

	ids := make([]any, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// DeleteBatch removes the documents in a single transaction: either the whole
// batch is deleted or none of it is.
func (r *mongoSpaceRepository) DeleteBatch(ctx context.Context, ref model.CollectionRef, ids []any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := r.children(ref).DeleteMany(sessCtx, bson.M{
			"_id":              bson.M{"$in": ids},
			model.FieldSpaceID: ref.SpaceID,
		})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch from %s: %w", ref, err)
	}
	return deleted, nil
}

func (r *mongoSpaceRepository) AggregateCount(ctx context.Context, ref model.CollectionRef) store.CountResult {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{model.FieldSpaceID: ref.SpaceID}}},
		{{Key: "$count", Value: "n"}},
	}

	cursor, err := r.children(ref).Aggregate(ctx, pipeline)
	if err != nil {
		return store.CountResult{Err: err}
	}
	defer cursor.Close(ctx)

	var rows []struct {
		N int64 `bson:"n"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return store.CountResult{Err: err}
	}
	// $count emits nothing for an empty match.
	if len(rows) == 0 {
		return store.CountResult{Count: 0}
	}
	return store.CountResult{Count: rows[0].N}
}

func (r *mongoSpaceRepository) ScanCount(ctx context.Context, ref model.CollectionRef) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.children(ref).Find(ctx, bson.M{model.FieldSpaceID: ref.SpaceID}, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", ref, err)
	}
	defer cursor.Close(ctx)

	var n int64
	for cursor.Next(ctx) {
		n++
	}
	if err := cursor.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", ref, err)
	}
	return n, nil
}

func (r *mongoSpaceRepository) SetUserCount(ctx context.Context, spaceID string, count int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.spaces.UpdateOne(ctx,
		bson.M{"_id": spaceID},
		bson.M{"$set": bson.M{model.FieldCurrentUserCount: count}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user count of space %s: %w", spaceID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrSpaceNotFound, spaceID)
	}
	return nil
}
