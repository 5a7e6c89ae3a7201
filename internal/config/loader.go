package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "dictum.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DICTUM_PORT")
	setString(&cfg.Server.CORSOrigin, "DICTUM_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "DICTUM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "DICTUM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "DICTUM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "DICTUM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "DICTUM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.MaxCostBytes, "DICTUM_CACHE_MAX_COST_BYTES")
	setDuration(&cfg.Cache.TTL, "DICTUM_CACHE_TTL")
	setString(&cfg.Collaborator.URL, "DICTUM_PANEL_URL")
	setDuration(&cfg.Collaborator.Timeout, "DICTUM_PANEL_TIMEOUT")
	setInt(&cfg.Collaborator.MaxConcurrent, "DICTUM_PANEL_MAX_CONCURRENT")
	setString(&cfg.Docgen.URL, "DICTUM_DOCGEN_URL")
	setDuration(&cfg.Docgen.Timeout, "DICTUM_DOCGEN_TIMEOUT")
	setString(&cfg.Workflow.RosterFile, "DICTUM_ROSTER_FILE")
	setFloat64(&cfg.Workflow.MaterialityThreshold, "DICTUM_MATERIALITY_THRESHOLD")
	setFloat64(&cfg.Rate.RequestsPerSecond, "DICTUM_RATE_RPS")
	setInt(&cfg.Rate.Burst, "DICTUM_RATE_BURST")
	setString(&cfg.Logging.Level, "DICTUM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DICTUM_LOG_SERVICE")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks the final configuration for consistency.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return fmt.Errorf("server port %q is not numeric", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres max_conns must be >= 1")
	}
	if cfg.Postgres.MinConns < 0 || cfg.Postgres.MinConns > cfg.Postgres.MaxConns {
		return errors.New("postgres min_conns must be between 0 and max_conns")
	}
	if cfg.Collaborator.Timeout <= 0 {
		return errors.New("collaborator timeout must be positive")
	}
	if cfg.Collaborator.MaxConcurrent < 1 {
		return errors.New("collaborator max_concurrent must be >= 1")
	}
	if cfg.Workflow.MaterialityThreshold < 0 {
		return errors.New("workflow materiality_threshold must be >= 0")
	}
	if cfg.Rate.RequestsPerSecond < 0 {
		return errors.New("rate requests_per_second must be >= 0")
	}
	if cfg.Rate.RequestsPerSecond > 0 && cfg.Rate.Burst < 1 {
		return errors.New("rate burst must be >= 1 when rate limiting is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
