package kafka_config

import "time"

const (
	// No broker by default: sweep events are opt-in.
	DefaultKafkaBrokers = ""

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerWriteTimeout = 10 * time.Second
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"

	// Middleware defaults
	DefaultEnableMiddleware = true
)
