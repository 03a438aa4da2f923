package config

import "time"

const (
	DefaultMongoURI         = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultDatabaseID       = "spaces"
	DefaultMongoConnTimeout = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultActiveUserMinutes = 10
	DefaultMessageTTLHours   = 24
	// Stays below the 500 mutation limit of a single atomic batch.
	DefaultBatchSize = 450
	MaxBatchSize     = 499

	DefaultLockTTLSeconds = 600
	DefaultLockCollection = "MaintenanceLocks"
	DefaultLockDocID      = "space-cleanup-lock"
	DefaultLockHolder     = "cleanup-service"

	DefaultSpacesCollection      = "Spaces"
	DefaultActiveUsersCollection = "activeUsers"
	DefaultMessagesCollection    = "messages"

	DefaultMetricsEnabled = true
	DefaultSweepTopic     = "space-sweeps"

	// Must not exceed the lock TTL.
	DefaultRequestTimeout = 9 * time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

const (
	SpaceErrorPolicyAbort    = "abort"
	SpaceErrorPolicyContinue = "continue"

	DefaultSpaceErrorPolicy = SpaceErrorPolicyAbort
)
