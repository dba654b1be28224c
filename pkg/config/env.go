package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMboBaseURL              = "MBO_BASE_URL"
	EnvMboAPIKey               = "MBO_API_KEY"
	EnvMboSourceName           = "MBO_SOURCE_NAME"
	EnvMboSourcePassword       = "MBO_SOURCE_PASSWORD"
	EnvMboCallTimeout          = "MBO_CALL_TIMEOUT"
	EnvMboMaxRetries           = "MBO_MAX_RETRIES"
	EnvMboRetryInitialInterval = "MBO_RETRY_INITIAL_INTERVAL"
	EnvMboRetryMaxInterval     = "MBO_RETRY_MAX_INTERVAL"
	EnvMboRateLimitRPS         = "MBO_RATE_LIMIT_RPS"
	EnvMboRateLimitBurst       = "MBO_RATE_LIMIT_BURST"
	EnvMboStaffPageSize        = "MBO_STAFF_PAGE_SIZE"

	EnvSlotUnit       = "SLOT_UNIT"
	EnvConflictBuffer = "CONFLICT_BUFFER"
	EnvExemptCoachTag = "EXEMPT_COACH_TAG"

	EnvPublishLockTTL       = "PUBLISH_LOCK_TTL"
	EnvPublishStaleAfter    = "PUBLISH_STALE_AFTER"
	EnvPublishTopic         = "PUBLISH_TOPIC"
	EnvPublishDLQTopic      = "PUBLISH_DLQ_TOPIC"
	EnvPublishConsumerGroup = "PUBLISH_CONSUMER_GROUP"
)
