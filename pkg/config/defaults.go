package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "inventario"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultAllowPeriodic      = false
	DefaultReservationLockTTL = 10 * time.Second

	DefaultEntitlementsRefresh = 15 * time.Minute

	DefaultKafkaConfirmationsTopic = "inventario.reservation-confirmations"

	DefaultPaginationLimit = 100
)
