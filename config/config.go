// Package config loads thistle configuration from env-default tags, an
// optional YAML file, .env files and the process environment.
package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/utils"
)

// Residual modes for the PDM pool
const (
	ResidualPerList  = "per_list"
	ResidualCombined = "combined"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"thistle" yaml:"app_name" validate:"required"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" yaml:"log_level" validate:"oneof=debug info warn error"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false" yaml:"pretty_logs"`

	// Inputs and outputs
	CustomerPath string `env:"CUSTOMER_PATH" env-default:"data/customers.csv" yaml:"customer_path"`
	NegativePath string `env:"NEGATIVE_PATH" env-default:"data/negative.csv" yaml:"negative_path"`
	PositivePath string `env:"POSITIVE_PATH" env-default:"data/positive.csv" yaml:"positive_path"`
	OutputDir    string `env:"OUTPUT_DIR" env-default:"out" yaml:"output_dir" validate:"required"`

	// Run behaviour
	SnapshotEnabled    bool   `env:"SNAPSHOT_ENABLED" env-default:"false" yaml:"snapshot_enabled"`
	Workers            int    `env:"WORKERS" env-default:"4" yaml:"workers" validate:"min=1,max=256"`
	ResidualMode       string `env:"RESIDUAL_MODE" env-default:"per_list" yaml:"residual_mode" validate:"oneof=per_list combined"`
	StrictDuplicateIDs bool   `env:"STRICT_DUPLICATE_IDS" env-default:"false" yaml:"strict_duplicate_ids"`
	ScoringEnabled     bool   `env:"SCORING_ENABLED" env-default:"true" yaml:"scoring_enabled"`
	ConsolidateLedger  bool   `env:"CONSOLIDATE_LEDGER" env-default:"false" yaml:"consolidate_ledger"`
	MetricsTextfile    string `env:"METRICS_TEXTFILE" env-default:"" yaml:"metrics_textfile"`
	TracingEnabled     bool   `env:"TRACING_ENABLED" env-default:"false" yaml:"tracing_enabled"`

	// HTTP surface
	Port                          int      `env:"PORT" env-default:"3010" yaml:"port" validate:"min=1,max=65535"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10" yaml:"http_server_write_timeout_seconds"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10" yaml:"http_server_read_timeout_seconds"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10" yaml:"http_server_idle_timeout_seconds"`
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10" yaml:"http_server_read_header_timeout_seconds"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000" yaml:"http_server_max_header_bytes"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*" yaml:"http_server_allow_origins"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5" yaml:"startup_max_attempts" validate:"min=1"`

	// Kafka match event sink
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false" yaml:"kafka_enabled"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092" yaml:"kafka_brokers" validate:"required_if=KafkaEnabled true"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"screening-matches" yaml:"kafka_output_topic" validate:"required_if=KafkaEnabled true"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100" yaml:"kafka_batch_size" validate:"min=1"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100" yaml:"kafka_batch_timeout_ms"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1" yaml:"kafka_required_acks" validate:"oneof=-1 0 1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy" yaml:"kafka_compression" validate:"oneof=none gzip snappy lz4 zstd"`
}

// KafkaBatchTimeoutDuration returns the batch timeout as a duration
func (c *Config) KafkaBatchTimeoutDuration() time.Duration {
	return time.Duration(c.KafkaBatchTimeout) * time.Millisecond
}

// Load builds the configuration. yamlPath and envFiles are optional; missing
// .env files are skipped, a missing YAML file is an error. Values from the
// environment win over the YAML file, env-default tags fill what is left.
func Load(yamlPath string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(err, "load env file %s", f)
		}
	}

	cfg := &Config{}
	if yamlPath != "" {
		if err := cleanenv.ReadConfig(yamlPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "read config %s", yamlPath)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "read config from environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the validate tags
func (c *Config) Validate() error {
	_, err := utils.Validate(c)
	return err
}
