package kafka_config

import "time"

const (
	StartOffsetNewest int64 = -1
	StartOffsetOldest int64 = -2
)

const (
	DefaultKafkaBrokers = "localhost:9092"

	// Lifecycle events are written synchronously from the request path, so
	// batches are flushed almost immediately.
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultDLQMaxAttempts       = 3

	// A new payments group starts from the oldest offset: a captured payment
	// skipped at first deploy would leave its hold to expire.
	DefaultConsumerStartOffset       = StartOffsetOldest
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 1024 * 1024
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = 0
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 30 * time.Second
	DefaultConsumerMaxRetries        = 5

	DefaultLogMessages = true
)
