package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Upstream endpoints used when no override is configured.
const (
	DefaultOutageURL     = "https://api.miluma.lumapr.com/miluma-outage-api/outage/regionsWithoutService"
	DefaultGenerationURL = "https://operationdata.prepa.pr.gov/dataSource.js"
)

// InsertPolicy decides what happens when a single row insert fails.
type InsertPolicy string

const (
	// InsertPolicyFail aborts the snapshot write on the first failed insert.
	InsertPolicyFail InsertPolicy = "fail"
	// InsertPolicySkip logs the failed row and continues with the next one.
	InsertPolicySkip InsertPolicy = "skip"
)

// Mode is the action a process invocation performs.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Mode        Mode
	DatabaseURL string
	SchemaPath  string

	OutageURL      string
	GenerationURL  string
	SourceTimezone string
	FetchTimeout   time.Duration
	EvalTimeout    time.Duration

	InsertPolicy InsertPolicy

	KafkaBrokers []string
	KafkaTopic   string

	PushgatewayURL string
	PushgatewayJob string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// LoadEnvFile loads the file named by DOT_ENV into the environment, if set.
// Variables already present in the environment are not overridden.
func LoadEnvFile() error {
	path := os.Getenv("DOT_ENV")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load DOT_ENV %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	evalTimeout, err := parsePositiveDuration("EVAL_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		Mode:            parseMode(),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SchemaPath:      os.Getenv("SCHEMA_PATH"),
		OutageURL:       sharedcfg.EnvOrDefault("OUTAGE_URL", DefaultOutageURL),
		GenerationURL:   sharedcfg.EnvOrDefault("GENERATION_URL", DefaultGenerationURL),
		SourceTimezone:  sharedcfg.EnvOrDefault("SOURCE_TIMEZONE", "America/Puerto_Rico"),
		FetchTimeout:    fetchTimeout,
		EvalTimeout:     evalTimeout,
		InsertPolicy:    InsertPolicy(strings.ToLower(sharedcfg.EnvOrDefault("INSERT_FAILURE_POLICY", string(InsertPolicyFail)))),
		KafkaBrokers:    brokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "grid-snapshots"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		PushgatewayJob:  sharedcfg.EnvOrDefault("PUSHGATEWAY_JOB", "grid_status_etl"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.InsertPolicy != InsertPolicyFail && cfg.InsertPolicy != InsertPolicySkip {
		return nil, fmt.Errorf("invalid INSERT_FAILURE_POLICY %q: want fail or skip", cfg.InsertPolicy)
	}
	if _, err := time.LoadLocation(cfg.SourceTimezone); err != nil {
		return nil, fmt.Errorf("invalid SOURCE_TIMEZONE %q: %w", cfg.SourceTimezone, err)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether snapshot notifications should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// parseMode maps the CREATE and UPDATE flags to a Mode. CREATE wins when both are set.
func parseMode() Mode {
	switch {
	case flagSet("CREATE"):
		return ModeCreate
	case flagSet("UPDATE"):
		return ModeUpdate
	default:
		return ModeNone
	}
}

func flagSet(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
