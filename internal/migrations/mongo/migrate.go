package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sweeper/internal/migrations/mongo/validators"
	"sweeper/pkg/config"
	"sweeper/pkg/logger"
	"sweeper/pkg/model"
)

type CollectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections returns the collections the sweeper reads and writes. The
// compound indexes back the per-space expiry queries and the per-space count.
func Collections(cfg *config.Config) []CollectionDef {
	return []CollectionDef{
		{
			Name:      cfg.SpacesCollection,
			Validator: validators.SpaceValidator,
		},
		{
			Name: cfg.ActiveUsersCollection,
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{
					{Key: model.FieldSpaceID, Value: 1},
					{Key: model.FieldLastUpdate, Value: 1},
				}},
			},
			Validator: validators.ActiveUserValidator,
		},
		{
			Name: cfg.MessagesCollection,
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{
					{Key: model.FieldSpaceID, Value: 1},
					{Key: model.FieldTimestamp, Value: 1},
				}},
			},
			Validator: validators.MessageValidator,
		},
		{
			Name: cfg.LockCollection,
			Indexes: []mongo.IndexModel{
				// Housekeeping only: an expired lock is already ignored by the sweeper.
				{
					Keys:    bson.D{{Key: "expiresAt", Value: 1}},
					Options: options.Index().SetExpireAfterSeconds(0),
				},
			},
			Validator: validators.MaintenanceLockValidator,
		},
	}
}

func RunMigration(ctx context.Context, cfg *config.Config) error {
	db := cfg.Client.Mongo.Database(cfg.DatabaseID)
	cfg.Log.Info("Running Mongo migrations", "database", cfg.DatabaseID)

	for _, def := range Collections(cfg) {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, cfg.Log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, cfg.Log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	cfg.Log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator if needed", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
