package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvAllowPeriodic      = "ALLOW_PERIODIC"
	EnvReservationLockTTL = "RESERVATION_LOCK_TTL"

	EnvEntitlementsBaseURL = "ENTITLEMENTS_BASE_URL"
	EnvEntitlementsRefresh = "ENTITLEMENTS_REFRESH"

	EnvKafkaBrokers            = "KAFKA_BROKERS"
	EnvKafkaConfirmationsTopic = "KAFKA_CONFIRMATIONS_TOPIC"
)
