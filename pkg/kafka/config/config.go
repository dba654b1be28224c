package kafka_config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyBrokers = "KAFKA_BROKERS"

	keyProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	keyProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	keyProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	keyProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	keyProducerAsync        = "KAFKA_PRODUCER_ASYNC"

	keyConsumerStartOffset       = "KAFKA_CONSUMER_START_OFFSET"
	keyConsumerMinBytes          = "KAFKA_CONSUMER_MIN_BYTES"
	keyConsumerMaxBytes          = "KAFKA_CONSUMER_MAX_BYTES"
	keyConsumerMaxWait           = "KAFKA_CONSUMER_MAX_WAIT"
	keyConsumerCommitInterval    = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	keyConsumerHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	keyConsumerSessionTimeout    = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	keyConsumerRebalanceTimeout  = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	keyConsumerMaxRetries        = "KAFKA_CONSUMER_MAX_RETRIES"
	keyConsumerConcurrency       = "KAFKA_CONSUMER_CONCURRENCY"

	keyEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)

// Publish tasks must never be skipped, so consumers start from the oldest
// offset and producers wait for every in-sync replica.
var defaults = map[string]any{
	keyBrokers: "localhost:9092",

	keyProducerMaxAttempts:  3,
	keyProducerBatchTimeout: 10 * time.Millisecond,
	keyProducerRequireAcks:  -1,
	keyProducerCompression:  "snappy",
	keyProducerAsync:        false,

	keyConsumerStartOffset:       -2,
	keyConsumerMinBytes:          1,
	keyConsumerMaxBytes:          10 * 1024 * 1024,
	keyConsumerMaxWait:           500 * time.Millisecond,
	keyConsumerCommitInterval:    time.Second,
	keyConsumerHeartbeatInterval: 3 * time.Second,
	keyConsumerSessionTimeout:    10 * time.Second,
	keyConsumerRebalanceTimeout:  60 * time.Second,
	keyConsumerMaxRetries:        3,
	keyConsumerConcurrency:       4,

	keyEnableMiddleware: true,
}

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}

type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 all replicas, 0 none, 1 leader
	ProducerCompression  string // one of compressions
	ProducerAsync        bool

	ConsumerStartOffset       int64 // -1 newest, -2 oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int
	ConsumerConcurrency       int // readers started per process in the same group

	EnableMiddleware bool
}

// SetDefaults registers the Kafka defaults on v so that FromViper can read every key.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// FromViper builds a Kafka config from v. Call SetDefaults on v first.
func FromViper(v *viper.Viper) *Config {
	var brokers []string
	for _, b := range strings.Split(v.GetString(keyBrokers), ",") {
		brokers = append(brokers, strings.TrimSpace(b))
	}

	return &Config{
		Brokers: brokers,

		ProducerMaxAttempts:  v.GetInt(keyProducerMaxAttempts),
		ProducerBatchTimeout: v.GetDuration(keyProducerBatchTimeout),
		ProducerRequireAcks:  v.GetInt(keyProducerRequireAcks),
		ProducerCompression:  v.GetString(keyProducerCompression),
		ProducerAsync:        v.GetBool(keyProducerAsync),

		ConsumerStartOffset:       v.GetInt64(keyConsumerStartOffset),
		ConsumerMinBytes:          v.GetInt(keyConsumerMinBytes),
		ConsumerMaxBytes:          v.GetInt(keyConsumerMaxBytes),
		ConsumerMaxWait:           v.GetDuration(keyConsumerMaxWait),
		ConsumerCommitInterval:    v.GetDuration(keyConsumerCommitInterval),
		ConsumerHeartbeatInterval: v.GetDuration(keyConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    v.GetDuration(keyConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  v.GetDuration(keyConsumerRebalanceTimeout),
		ConsumerMaxRetries:        v.GetInt(keyConsumerMaxRetries),
		ConsumerConcurrency:       v.GetInt(keyConsumerConcurrency),

		EnableMiddleware: v.GetBool(keyEnableMiddleware),
	}
}

// Validate reports every invalid field at once.
func (cfg *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(cfg.Brokers) == 0 {
		fail("at least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			fail("broker %d cannot be empty", i)
		}
	}

	if cfg.ProducerMaxAttempts <= 0 {
		fail("%s must be positive, got: %d", keyProducerMaxAttempts, cfg.ProducerMaxAttempts)
	}
	if cfg.ProducerBatchTimeout <= 0 {
		fail("%s must be positive, got: %s", keyProducerBatchTimeout, cfg.ProducerBatchTimeout)
	}
	if !slices.Contains(compressions, cfg.ProducerCompression) {
		fail("%s must be one of %v, got: %s", keyProducerCompression, compressions, cfg.ProducerCompression)
	}
	if cfg.ProducerRequireAcks < -1 || cfg.ProducerRequireAcks > 1 {
		fail("%s must be -1, 0, or 1, got: %d", keyProducerRequireAcks, cfg.ProducerRequireAcks)
	}

	if cfg.ConsumerStartOffset < -2 {
		fail("%s must be -1, -2, or >= 0, got: %d", keyConsumerStartOffset, cfg.ConsumerStartOffset)
	}
	if cfg.ConsumerMinBytes <= 0 {
		fail("%s must be positive, got: %d", keyConsumerMinBytes, cfg.ConsumerMinBytes)
	}
	if cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		fail("%s must be at least %s, got: %d", keyConsumerMaxBytes, keyConsumerMinBytes, cfg.ConsumerMaxBytes)
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{keyConsumerMaxWait, cfg.ConsumerMaxWait},
		{keyConsumerCommitInterval, cfg.ConsumerCommitInterval},
		{keyConsumerHeartbeatInterval, cfg.ConsumerHeartbeatInterval},
		{keyConsumerSessionTimeout, cfg.ConsumerSessionTimeout},
		{keyConsumerRebalanceTimeout, cfg.ConsumerRebalanceTimeout},
	}
	for _, d := range durations {
		if d.val <= 0 {
			fail("%s must be positive, got: %s", d.key, d.val)
		}
	}

	if cfg.ConsumerConcurrency <= 0 {
		fail("%s must be positive, got: %d", keyConsumerConcurrency, cfg.ConsumerConcurrency)
	}
	if cfg.ConsumerMaxRetries < 0 {
		fail("%s cannot be negative, got: %d", keyConsumerMaxRetries, cfg.ConsumerMaxRetries)
	}

	if len(errs) > 0 {
		return fmt.Errorf("kafka configuration invalid: %w", errors.Join(errs...))
	}
	return nil
}

func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"producer_async", cfg.ProducerAsync,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"consumer_concurrency", cfg.ConsumerConcurrency,
		"enable_middleware", cfg.EnableMiddleware,
	)
}
