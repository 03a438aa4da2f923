package testutil

import (
	"os"
	"testing"
	"time"

	"sweeper/pkg/client"
	"sweeper/pkg/config"
	"sweeper/pkg/logger"
)

type TestEnv struct {
	MongoURI     string
	DatabaseName string
}

// NewTestEnv skips the test unless TEST_MONGO_URI points at a replica set.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	mongoURI := os.Getenv("TEST_MONGO_URI")
	if mongoURI == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	return &TestEnv{
		MongoURI:     mongoURI,
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
	}
}

// Setup connects, drops leftovers from earlier runs and returns a config
// pointing at the test database.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *config.Config) {
	t.Helper()

	log := logger.Discard()
	c := client.NewClient()
	c.SetMongo(log, e.MongoURI, ConnectionTimeout)

	cfg := &config.Config{
		MongoURI:              e.MongoURI,
		DatabaseID:            e.DatabaseName,
		ActiveUserMinutes:     config.DefaultActiveUserMinutes,
		MessageTTLHours:       config.DefaultMessageTTLHours,
		BatchSize:             config.DefaultBatchSize,
		SpaceErrorPolicy:      config.DefaultSpaceErrorPolicy,
		LockTTLSeconds:        config.DefaultLockTTLSeconds,
		LockCollection:        config.DefaultLockCollection,
		LockDocID:             config.DefaultLockDocID,
		LockHolder:            "integration",
		SpacesCollection:      config.DefaultSpacesCollection,
		ActiveUsersCollection: config.DefaultActiveUsersCollection,
		MessagesCollection:    config.DefaultMessagesCollection,
		RequestTimeout:        time.Minute,
		Log:                   log,
		Client:                c,
	}

	mongo := &MongoHelper{
		Client:   c.Mongo,
		Database: c.Mongo.Database(e.DatabaseName),
		DBName:   e.DatabaseName,
	}
	mongo.CleanDatabase(t)
	return mongo, cfg
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper, cfg *config.Config) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
	}
	cfg.GracefulShutdown()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
