package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvStoreDriver          = "STORE_DRIVER"
	EnvPostgresDSN          = "POSTGRES_DSN"
	EnvPostgresMaxOpenConns = "POSTGRES_MAX_OPEN_CONNS"
	EnvStoreReadTimeout     = "STORE_READ_TIMEOUT"
	EnvStoreWriteTimeout    = "STORE_WRITE_TIMEOUT"

	EnvRedisAddr       = "REDIS_ADDR"
	EnvRedisPassword   = "REDIS_PASSWORD"
	EnvRedisDB         = "REDIS_DB"
	EnvRedisTLS        = "REDIS_TLS"
	EnvAvailabilityTTL = "AVAILABILITY_TTL"
	EnvCachePrefix     = "CACHE_PREFIX"
	EnvCacheOpTimeout  = "CACHE_OP_TIMEOUT"

	EnvKafkaEnabled           = "KAFKA_ENABLED"
	EnvReservationEventsTopic = "KAFKA_RESERVATION_EVENTS_TOPIC"
	EnvPaymentsTopic          = "KAFKA_PAYMENTS_TOPIC"
	EnvPaymentsGroupID        = "KAFKA_PAYMENTS_GROUP_ID"
	EnvPaymentsDLQTopic       = "KAFKA_PAYMENTS_DLQ_TOPIC"

	EnvClubsFile      = "CLUBS_FILE"
	EnvSweepSchedule  = "SWEEP_SCHEDULE"
	EnvSweepBatchSize = "SWEEP_BATCH_SIZE"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
