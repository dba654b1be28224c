package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"roster/pkg/client"
	kafka_config "roster/pkg/kafka/config"
	"roster/pkg/logger"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRPS   float64
	RateLimitBurst int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MboBaseURL              string
	MboAPIKey               string
	MboSourceName           string
	MboSourcePassword       string
	MboCallTimeout          time.Duration
	MboMaxRetries           int
	MboRetryInitialInterval time.Duration
	MboRetryMaxInterval     time.Duration
	MboRateLimitRPS         float64
	MboRateLimitBurst       int
	MboStaffPageSize        int

	SlotUnit       time.Duration
	ConflictBuffer time.Duration
	ExemptCoachTag string

	PublishLockTTL       time.Duration
	PublishStaleAfter    time.Duration
	PublishTopic         string
	PublishDLQTopic      string
	PublishConsumerGroup string

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

// NewViper returns a viper instance bound to the process environment with every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(EnvMongoURI, DefaultMongoURI)
	v.SetDefault(EnvMongoDatabaseName, DefaultMongoDatabaseName)
	v.SetDefault(EnvMongoConnTimeout, DefaultMongoConnTimeout)
	v.SetDefault(EnvPort, DefaultPort)
	v.SetDefault(EnvLogLevel, DefaultLogLevel)
	v.SetDefault(EnvRateLimitRPS, DefaultRateLimitRPS)
	v.SetDefault(EnvRateLimitBurst, DefaultRateLimitBurst)
	v.SetDefault(EnvRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(EnvIdempotencyTTL, DefaultIdempotencyTTL)
	v.SetDefault(EnvMaxRequestSize, DefaultMaxRequestSize)
	v.SetDefault(EnvReadTimeout, DefaultReadTimeout)
	v.SetDefault(EnvWriteTimeout, DefaultWriteTimeout)
	v.SetDefault(EnvIdleTimeout, DefaultIdleTimeout)
	v.SetDefault(EnvShutdownTimeout, DefaultShutdownTimeout)

	v.SetDefault(EnvMboBaseURL, DefaultMboBaseURL)
	v.SetDefault(EnvMboAPIKey, "")
	v.SetDefault(EnvMboSourceName, "")
	v.SetDefault(EnvMboSourcePassword, "")
	v.SetDefault(EnvMboCallTimeout, DefaultMboCallTimeout)
	v.SetDefault(EnvMboMaxRetries, DefaultMboMaxRetries)
	v.SetDefault(EnvMboRetryInitialInterval, DefaultMboRetryInitialInterval)
	v.SetDefault(EnvMboRetryMaxInterval, DefaultMboRetryMaxInterval)
	v.SetDefault(EnvMboRateLimitRPS, DefaultMboRateLimitRPS)
	v.SetDefault(EnvMboRateLimitBurst, DefaultMboRateLimitBurst)
	v.SetDefault(EnvMboStaffPageSize, DefaultMboStaffPageSize)

	v.SetDefault(EnvSlotUnit, DefaultSlotUnit)
	v.SetDefault(EnvConflictBuffer, DefaultConflictBuffer)
	v.SetDefault(EnvExemptCoachTag, DefaultExemptCoachTag)

	v.SetDefault(EnvPublishLockTTL, DefaultPublishLockTTL)
	v.SetDefault(EnvPublishStaleAfter, DefaultPublishStaleAfter)
	v.SetDefault(EnvPublishTopic, DefaultPublishTopic)
	v.SetDefault(EnvPublishDLQTopic, DefaultPublishDLQTopic)
	v.SetDefault(EnvPublishConsumerGroup, DefaultPublishConsumerGroup)

	kafka_config.SetDefaults(v)
	return v
}

func Load(serviceName string) *Config {
	v := NewViper()
	cfg := FromViper(v)
	cfg.Log = logger.New(logger.Config{
		Level:     v.GetString(EnvLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromViper reads every setting out of v. It performs no validation.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		MongoURI:          v.GetString(EnvMongoURI),
		MongoDatabaseName: v.GetString(EnvMongoDatabaseName),
		MongoConnTimeout:  v.GetDuration(EnvMongoConnTimeout),

		Port: v.GetString(EnvPort),

		RateLimitRPS:   v.GetFloat64(EnvRateLimitRPS),
		RateLimitBurst: v.GetInt(EnvRateLimitBurst),

		RequestTimeout: v.GetDuration(EnvRequestTimeout),
		IdempotencyTTL: v.GetDuration(EnvIdempotencyTTL),
		MaxRequestSize: v.GetInt(EnvMaxRequestSize),

		ReadTimeout:     v.GetDuration(EnvReadTimeout),
		WriteTimeout:    v.GetDuration(EnvWriteTimeout),
		IdleTimeout:     v.GetDuration(EnvIdleTimeout),
		ShutdownTimeout: v.GetDuration(EnvShutdownTimeout),

		MboBaseURL:              v.GetString(EnvMboBaseURL),
		MboAPIKey:               v.GetString(EnvMboAPIKey),
		MboSourceName:           v.GetString(EnvMboSourceName),
		MboSourcePassword:       v.GetString(EnvMboSourcePassword),
		MboCallTimeout:          v.GetDuration(EnvMboCallTimeout),
		MboMaxRetries:           v.GetInt(EnvMboMaxRetries),
		MboRetryInitialInterval: v.GetDuration(EnvMboRetryInitialInterval),
		MboRetryMaxInterval:     v.GetDuration(EnvMboRetryMaxInterval),
		MboRateLimitRPS:         v.GetFloat64(EnvMboRateLimitRPS),
		MboRateLimitBurst:       v.GetInt(EnvMboRateLimitBurst),
		MboStaffPageSize:        v.GetInt(EnvMboStaffPageSize),

		SlotUnit:       v.GetDuration(EnvSlotUnit),
		ConflictBuffer: v.GetDuration(EnvConflictBuffer),
		ExemptCoachTag: v.GetString(EnvExemptCoachTag),

		PublishLockTTL:       v.GetDuration(EnvPublishLockTTL),
		PublishStaleAfter:    v.GetDuration(EnvPublishStaleAfter),
		PublishTopic:         v.GetString(EnvPublishTopic),
		PublishDLQTopic:      v.GetString(EnvPublishDLQTopic),
		PublishConsumerGroup: v.GetString(EnvPublishConsumerGroup),

		Kafka: kafka_config.FromViper(v),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Database() *mongo.Database {
	return cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"MboCallTimeout", cfg.MboCallTimeout},
		{"MboRetryInitialInterval", cfg.MboRetryInitialInterval},
		{"MboRetryMaxInterval", cfg.MboRetryMaxInterval},
		{"SlotUnit", cfg.SlotUnit},
		{"PublishLockTTL", cfg.PublishLockTTL},
		{"PublishStaleAfter", cfg.PublishStaleAfter},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.ConflictBuffer < 0 {
		errors = append(errors, fmt.Sprintf("ConflictBuffer cannot be negative, got: %s", cfg.ConflictBuffer))
	}
	if cfg.SlotUnit > 0 && time.Hour%cfg.SlotUnit != 0 {
		errors = append(errors, fmt.Sprintf("SlotUnit must divide one hour evenly, got: %s", cfg.SlotUnit))
	}
	if cfg.MboRetryMaxInterval < cfg.MboRetryInitialInterval {
		errors = append(errors, fmt.Sprintf("MboRetryMaxInterval (%s) must be >= MboRetryInitialInterval (%s)", cfg.MboRetryMaxInterval, cfg.MboRetryInitialInterval))
	}

	if cfg.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRPS must be positive, got: %v", cfg.RateLimitRPS))
	}
	if cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive, got: %d", cfg.RateLimitBurst))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if u, err := url.Parse(cfg.MboBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("MboBaseURL must be an absolute URL, got: %s", cfg.MboBaseURL))
	}
	if cfg.MboMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("MboMaxRetries cannot be negative, got: %d", cfg.MboMaxRetries))
	}
	if cfg.MboRateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("MboRateLimitRPS must be positive, got: %v", cfg.MboRateLimitRPS))
	}
	if cfg.MboRateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("MboRateLimitBurst must be positive, got: %d", cfg.MboRateLimitBurst))
	}
	if cfg.MboStaffPageSize <= 0 {
		errors = append(errors, fmt.Sprintf("MboStaffPageSize must be positive, got: %d", cfg.MboStaffPageSize))
	}

	if cfg.PublishTopic == "" {
		errors = append(errors, "PublishTopic cannot be empty")
	}
	if cfg.PublishConsumerGroup == "" {
		errors = append(errors, "PublishConsumerGroup cannot be empty")
	}
	if cfg.PublishDLQTopic != "" && cfg.PublishDLQTopic == cfg.PublishTopic {
		errors = append(errors, "PublishDLQTopic must differ from PublishTopic")
	}

	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"mbo_base_url", cfg.MboBaseURL,
		"mbo_api_key_set", cfg.MboAPIKey != "",
		"mbo_source_set", cfg.MboSourceName != "",
		"mbo_call_timeout", cfg.MboCallTimeout,
		"mbo_max_retries", cfg.MboMaxRetries,
		"mbo_retry_initial_interval", cfg.MboRetryInitialInterval,
		"mbo_retry_max_interval", cfg.MboRetryMaxInterval,
		"mbo_rate_limit_rps", cfg.MboRateLimitRPS,
		"mbo_rate_limit_burst", cfg.MboRateLimitBurst,
		"mbo_staff_page_size", cfg.MboStaffPageSize,
		"slot_unit", cfg.SlotUnit,
		"conflict_buffer", cfg.ConflictBuffer,
		"exempt_coach_tag", cfg.ExemptCoachTag,
		"publish_lock_ttl", cfg.PublishLockTTL,
		"publish_stale_after", cfg.PublishStaleAfter,
		"publish_topic", cfg.PublishTopic,
		"publish_dlq_topic", cfg.PublishDLQTopic,
		"publish_consumer_group", cfg.PublishConsumerGroup,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}
