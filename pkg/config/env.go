package config

const (
	EnvMongoURI         = "MONGO_URI"
	EnvDatabaseID       = "DATABASE_ID"
	EnvMongoConnTimeout = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvActiveUserMinutes = "ACTIVE_USER_MINUTES"
	EnvMessageTTLHours   = "MESSAGE_TTL_HOURS"
	EnvBatchSize         = "BATCH_SIZE"
	EnvSpaceErrorPolicy  = "SPACE_ERROR_POLICY"

	EnvLockTTLSeconds = "LOCK_TTL_SECONDS"
	EnvLockCollection = "LOCK_COLLECTION"
	EnvLockDocID      = "LOCK_DOC_ID"
	EnvLockHolder     = "LOCK_HOLDER"

	EnvSpacesCollection      = "SPACES_COLLECTION"
	EnvActiveUsersCollection = "ACTIVE_USERS_COLLECTION"
	EnvMessagesCollection    = "MESSAGES_COLLECTION"

	EnvSweepSchedule  = "SWEEP_SCHEDULE"
	EnvMetricsEnabled = "METRICS_ENABLED"
	EnvSweepTopic     = "KAFKA_SWEEP_TOPIC"

	EnvRequestTimeout = "REQUEST_TIMEOUT"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
