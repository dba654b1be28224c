package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roster"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMboBaseURL              = "https://api.mindbodyonline.com/public/v6"
	DefaultMboCallTimeout          = 10 * time.Second
	DefaultMboMaxRetries           = 3
	DefaultMboRetryInitialInterval = 500 * time.Millisecond
	DefaultMboRetryMaxInterval     = 5 * time.Second
	DefaultMboRateLimitRPS         = 5.0
	DefaultMboRateLimitBurst       = 5
	DefaultMboStaffPageSize        = 200

	DefaultSlotUnit       = 15 * time.Minute
	DefaultConflictBuffer = 60 * time.Minute
	DefaultExemptCoachTag = "TBD"

	DefaultPublishLockTTL       = 6 * time.Hour
	DefaultPublishStaleAfter    = 30 * time.Minute
	DefaultPublishTopic         = "roster.publish.tasks"
	DefaultPublishDLQTopic      = "roster.publish.tasks.dlq"
	DefaultPublishConsumerGroup = "roster-publish-worker"
)
