package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Daemon is the environment configuration of the alarm daemon. Location,
// method and the other calculation inputs still come from the JSON settings
// file; Daemon only covers process-level wiring.
type Daemon struct {
	AppEnv   string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local development production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"required,oneof=debug info warn error"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"127.0.0.1:8089"`

	TriggerStore string `envconfig:"TRIGGER_STORE" default:"sqlite" validate:"required,oneof=memory sqlite redis"`
	SQLitePath   string `envconfig:"SQLITE_PATH" validate:"required_if=TriggerStore sqlite"`

	RedisAddr      string `envconfig:"REDIS_ADDR" validate:"required_if=TriggerStore redis"`
	RedisUsername  string `envconfig:"REDIS_USERNAME"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0,lte=15"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"athan"`

	MQTTBroker   string `envconfig:"MQTT_BROKER" validate:"omitempty,url"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID" default:"athan-daemon"`
	MQTTTopic    string `envconfig:"MQTT_TOPIC" default:"athan/alerts"`

	RetryInterval time.Duration `envconfig:"RETRY_INTERVAL" default:"5m" validate:"gt=0"`
}

// ConfigErrorType categorizes daemon configuration failures.
type ConfigErrorType string

const (
	// ErrParsing indicates an environment value could not be parsed into
	// its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is returned by LoadDaemon.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadDaemon loads the daemon configuration from the environment, reading a
// .env file in the working directory first if one exists. Variables already
// set in the environment win over the .env file.
func LoadDaemon() (*Daemon, error) {
	_ = godotenv.Load()

	var d Daemon
	if err := envconfig.Process("", &d); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if d.TriggerStore == "sqlite" && d.SQLitePath == "" {
		dir, err := Dir()
		if err == nil {
			d.SQLitePath = filepath.Join(dir, "alarms.db")
		}
	}

	if err := validator.New().Struct(d); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return &d, nil
}
