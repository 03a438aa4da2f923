package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"sweeper/pkg/client"
	"sweeper/pkg/logger"
)

type Config struct {
	MongoURI         string        `validate:"required"`
	DatabaseID       string        `validate:"required"`
	MongoConnTimeout time.Duration `validate:"gt=0"`

	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`

	ActiveUserMinutes int    `validate:"gt=0"`
	MessageTTLHours   int    `validate:"gt=0"`
	BatchSize         int    `validate:"min=1,max=499"`
	SpaceErrorPolicy  string `validate:"oneof=abort continue"`

	LockTTLSeconds int    `validate:"gt=0"`
	LockCollection string `validate:"required"`
	LockDocID      string `validate:"required"`
	LockHolder     string `validate:"required"`

	SpacesCollection      string `validate:"required"`
	ActiveUsersCollection string `validate:"required"`
	MessagesCollection    string `validate:"required"`

	SweepSchedule  string
	MetricsEnabled bool
	SweepTopic     string

	RequestTimeout time.Duration `validate:"gt=0"`

	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	IdleTimeout     time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	Log    *logger.Logger `validate:"-"`
	Client *client.Client `validate:"-"`
}

func Load(serviceName string) *Config {
	cfg := fromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func fromEnv() *Config {
	return &Config{
		MongoURI:         getEnvStr(EnvMongoURI, DefaultMongoURI),
		DatabaseID:       getEnvStr(EnvDatabaseID, DefaultDatabaseID),
		MongoConnTimeout: getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		ActiveUserMinutes: getEnvNum(EnvActiveUserMinutes, DefaultActiveUserMinutes),
		MessageTTLHours:   getEnvNum(EnvMessageTTLHours, DefaultMessageTTLHours),
		BatchSize:         getEnvNum(EnvBatchSize, DefaultBatchSize),
		SpaceErrorPolicy:  strings.ToLower(getEnvStr(EnvSpaceErrorPolicy, DefaultSpaceErrorPolicy)),

		LockTTLSeconds: getEnvNum(EnvLockTTLSeconds, DefaultLockTTLSeconds),
		LockCollection: getEnvStr(EnvLockCollection, DefaultLockCollection),
		LockDocID:      getEnvStr(EnvLockDocID, DefaultLockDocID),
		LockHolder:     getEnvStr(EnvLockHolder, DefaultLockHolder),

		SpacesCollection:      getEnvStr(EnvSpacesCollection, DefaultSpacesCollection),
		ActiveUsersCollection: getEnvStr(EnvActiveUsersCollection, DefaultActiveUsersCollection),
		MessagesCollection:    getEnvStr(EnvMessagesCollection, DefaultMessagesCollection),

		SweepSchedule:  getEnvStr(EnvSweepSchedule, ""),
		MetricsEnabled: getEnvBool(EnvMetricsEnabled, DefaultMetricsEnabled),
		SweepTopic:     getEnvStr(EnvSweepTopic, DefaultSweepTopic),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) ActiveUserWindow() time.Duration {
	return time.Duration(cfg.ActiveUserMinutes) * time.Minute
}

func (cfg *Config) MessageTTL() time.Duration {
	return time.Duration(cfg.MessageTTLHours) * time.Hour
}

func (cfg *Config) LockTTL() time.Duration {
	return time.Duration(cfg.LockTTLSeconds) * time.Second
}

func (cfg *Config) ContinueOnSpaceError() bool {
	return cfg.SpaceErrorPolicy == SpaceErrorPolicyContinue
}

func (cfg *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, describeFieldError(fe))
		}
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI != "" && !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("SweepSchedule must be a valid cron expression, got: %q (%v)", cfg.SweepSchedule, err))
		}
	}

	if cfg.LockTTLSeconds > 0 && cfg.RequestTimeout > cfg.LockTTL() {
		errs = append(errs, fmt.Sprintf("RequestTimeout must not exceed the lock TTL, got: %s > %s", cfg.RequestTimeout, cfg.LockTTL()))
	}

	if cfg.ActiveUsersCollection == cfg.MessagesCollection && cfg.ActiveUsersCollection != "" {
		errs = append(errs, fmt.Sprintf("ActiveUsersCollection and MessagesCollection must differ, both are: %s", cfg.MessagesCollection))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s cannot be empty", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be positive, got: %v", fe.Field(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and %d, got: %v", fe.Field(), MaxBatchSize, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got: %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed '%s' validation, got: %v", fe.Field(), fe.Tag(), fe.Value())
	}
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"database", cfg.DatabaseID,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"active_user_minutes", cfg.ActiveUserMinutes,
		"message_ttl_hours", cfg.MessageTTLHours,
		"batch_size", cfg.BatchSize,
		"space_error_policy", cfg.SpaceErrorPolicy,
		"lock_ttl_seconds", cfg.LockTTLSeconds,
		"lock_collection", cfg.LockCollection,
		"lock_doc_id", cfg.LockDocID,
		"spaces_collection", cfg.SpacesCollection,
		"active_users_collection", cfg.ActiveUsersCollection,
		"messages_collection", cfg.MessagesCollection,
		"sweep_schedule", cfg.SweepSchedule,
		"metrics_enabled", cfg.MetricsEnabled,
		"request_timeout", cfg.RequestTimeout,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}
