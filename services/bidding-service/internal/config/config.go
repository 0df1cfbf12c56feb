package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	QueueDriverSQS      = "sqs"
	QueueDriverRabbitMQ = "rabbitmq"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Queue    QueueConfig    `mapstructure:"queue"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type HTTPConfig struct {
	Addr               string   `mapstructure:"addr" validate:"required"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type DatabaseConfig struct {
	URL         string        `mapstructure:"url" validate:"required"`
	LockTimeout time.Duration `mapstructure:"lock_timeout" validate:"gt=0"`
}

type QueueConfig struct {
	Driver       string        `mapstructure:"driver" validate:"oneof=sqs rabbitmq"`
	Name         string        `mapstructure:"name" validate:"required_if=Driver rabbitmq"`
	RabbitMQURL  string        `mapstructure:"rabbitmq_url"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	BatchSize    int           `mapstructure:"batch_size" validate:"gte=1,lte=10"`

	SQSQueueURL          string        `mapstructure:"sqs_url" validate:"required_if=Driver sqs"`
	SQSWaitTimeSeconds   int64         `mapstructure:"sqs_wait_time_seconds" validate:"gte=0,lte=20"`
	SQSVisibilityTimeout time.Duration `mapstructure:"sqs_visibility_timeout" validate:"gte=0"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type OutboxConfig struct {
	Exchange  string        `mapstructure:"exchange" validate:"required"`
	BatchSize int           `mapstructure:"batch_size" validate:"gte=1"`
	Interval  time.Duration `mapstructure:"interval" validate:"gt=0"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required_with=Host"`
}

// Enabled reports whether email delivery is configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type JWTConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path" validate:"required"`
	Issuer        string `mapstructure:"issuer"`
}

type NotifyConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// envKeys maps config keys to environment variables
var envKeys = map[string]string{
	"http.addr":                    "HTTP_ADDR",
	"http.cors_allowed_origins":    "CORS_ALLOWED_ORIGINS",
	"database.url":                 "BID_DB_URL",
	"database.lock_timeout":        "DB_LOCK_TIMEOUT",
	"queue.driver":                 "QUEUE_DRIVER",
	"queue.name":                   "BID_QUEUE_NAME",
	"queue.rabbitmq_url":           "RABBITMQ_URL",
	"queue.poll_interval":          "CONSUMER_POLL_INTERVAL",
	"queue.batch_size":             "CONSUMER_BATCH_SIZE",
	"queue.sqs_url":                "SQS_QUEUE_URL",
	"queue.sqs_wait_time_seconds":  "SQS_WAIT_TIME_SECONDS",
	"queue.sqs_visibility_timeout": "SQS_VISIBILITY_TIMEOUT",
	"aws.region":                   "AWS_REGION",
	"aws.endpoint":                 "AWS_ENDPOINT",
	"aws.access_key_id":            "AWS_ACCESS_KEY_ID",
	"aws.secret_access_key":        "AWS_SECRET_ACCESS_KEY",
	"outbox.exchange":              "OUTBOX_EXCHANGE",
	"outbox.batch_size":            "OUTBOX_BATCH_SIZE",
	"outbox.interval":              "OUTBOX_INTERVAL",
	"redis.url":                    "REDIS_URL",
	"smtp.host":                    "SMTP_HOST",
	"smtp.port":                    "SMTP_PORT",
	"smtp.username":                "SMTP_USERNAME",
	"smtp.password":                "SMTP_PASSWORD",
	"smtp.from":                    "MAIL_FROM",
	"jwt.public_key_path":          "JWT_PUBLIC_KEY_PATH",
	"jwt.issuer":                   "JWT_ISSUER",
	"notify.concurrency":           "NOTIFY_CONCURRENCY",
	"notify.timeout":               "NOTIFY_TIMEOUT",
}

var defaults = map[string]interface{}{
	"http.addr":                    ":8080",
	"database.lock_timeout":        "3s",
	"queue.driver":                 QueueDriverRabbitMQ,
	"queue.name":                   "rentrover.bids",
	"queue.poll_interval":          "3s",
	"queue.batch_size":             1,
	"queue.sqs_wait_time_seconds":  10,
	"queue.sqs_visibility_timeout": "30s",
	"aws.region":                   "us-east-1",
	"outbox.exchange":              "rentrover.events",
	"outbox.batch_size":            10,
	"outbox.interval":              "1s",
	"smtp.port":                    587,
	"smtp.from":                    "RentRover <no-reply@rentrover.dev>",
	"jwt.public_key_path":          "keys/public.pem",
	"notify.concurrency":           4,
	"notify.timeout":               "30s",
}

// Load reads .env.local and .env into the environment, then builds the
// configuration from defaults overridden by environment variables.
func Load() (*Config, error) {
	// Local overrides .env; godotenv never overwrites variables already set
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	return FromViper(viper.New())
}

// FromViper resolves the configuration from v. Values already set on v win
// over the environment.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.HTTP.CORSAllowedOrigins = splitList(cfg.HTTP.CORSAllowedOrigins)

	if cfg.Queue.Driver == QueueDriverRabbitMQ && cfg.Queue.RabbitMQURL == "" {
		return nil, fmt.Errorf("invalid config: RABBITMQ_URL is required for the rabbitmq queue driver")
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// splitList flattens comma separated entries and drops blanks
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
