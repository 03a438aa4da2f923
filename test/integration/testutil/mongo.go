package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"sweeper/pkg/model"
)

const (
	DefaultDatabaseName = "sweeper_test"
	ConnectionTimeout   = 10 * time.Second
)

// MongoHelper provides MongoDB test utilities
type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// CleanDatabase drops all collections
func (m *MongoHelper) CleanDatabase(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Fatalf("failed to drop database %s: %v", m.DBName, err)
	}
}

func (m *MongoHelper) InsertSpace(t *testing.T, collection string, space model.Space) {
	t.Helper()
	m.insert(t, collection, space)
}

// InsertActiveUsers adds n users of spaceID last seen at lastUpdate.
func (m *MongoHelper) InsertActiveUsers(t *testing.T, collection, spaceID string, n int, lastUpdate time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		m.insert(t, collection, model.ActiveUser{
			ID:         fmt.Sprintf("%s-user-%s-%03d", spaceID, lastUpdate.Format("150405"), i),
			SpaceID:    spaceID,
			LastUpdate: lastUpdate,
		})
	}
}

func (m *MongoHelper) InsertMessages(t *testing.T, collection, spaceID string, n int, timestamp time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		m.insert(t, collection, model.Message{
			ID:        fmt.Sprintf("%s-msg-%d-%03d", spaceID, timestamp.Unix(), i),
			SpaceID:   spaceID,
			Timestamp: timestamp,
		})
	}
}

func (m *MongoHelper) InsertLock(t *testing.T, collection string, lock model.MaintenanceLock) {
	t.Helper()
	m.insert(t, collection, lock)
}

func (m *MongoHelper) CountDocuments(t *testing.T, collection string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collection, err)
	}
	return count
}

func (m *MongoHelper) UserCount(t *testing.T, collection, spaceID string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var space model.Space
	if err := m.Database.Collection(collection).FindOne(ctx, bson.M{"_id": spaceID}).Decode(&space); err != nil {
		t.Fatalf("failed to load space %s: %v", spaceID, err)
	}
	return space.CurrentUserCount
}

func (m *MongoHelper) insert(t *testing.T, collection string, doc any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.Database.Collection(collection).InsertOne(ctx, doc); err != nil {
		t.Fatalf("failed to insert into %s: %v", collection, err)
	}
}
