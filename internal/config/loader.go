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
const DefaultConfigFile = "fraudgate.yaml"

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
	setString(&cfg.Server.Port, "FRAUDGATE_PORT")
	setString(&cfg.Server.CORSOrigin, "FRAUDGATE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FRAUDGATE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FRAUDGATE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FRAUDGATE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FRAUDGATE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FRAUDGATE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.Capabilities.Backend, "FRAUDGATE_CAP_BACKEND")
	setString(&cfg.Capabilities.MLModel, "FRAUDGATE_CAP_ML_MODEL")
	setString(&cfg.Capabilities.RuleModel, "FRAUDGATE_CAP_RULE_MODEL")
	setString(&cfg.Capabilities.DecisionModel, "FRAUDGATE_CAP_DECISION_MODEL")
	setString(&cfg.Capabilities.ExplainModel, "FRAUDGATE_CAP_EXPLAIN_MODEL")
	setString(&cfg.Capabilities.DialogueModel, "FRAUDGATE_CAP_DIALOGUE_MODEL")
	setDuration(&cfg.Capabilities.AssessTimeout, "FRAUDGATE_CAP_ASSESS_TIMEOUT")
	setDuration(&cfg.Capabilities.DecideTimeout, "FRAUDGATE_CAP_DECIDE_TIMEOUT")
	setDuration(&cfg.Capabilities.ExplainTimeout, "FRAUDGATE_CAP_EXPLAIN_TIMEOUT")
	setString(&cfg.Logging.Level, "FRAUDGATE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FRAUDGATE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "FRAUDGATE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FRAUDGATE_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "FRAUDGATE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.LookupTTL, "FRAUDGATE_CACHE_LOOKUP_TTL")
	setBool(&cfg.MCP.Enabled, "FRAUDGATE_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "FRAUDGATE_MCP_ADDR")
	setBool(&cfg.Auth.Enabled, "FRAUDGATE_AUTH_ENABLED")
	setBool(&cfg.Telemetry.Enabled, "FRAUDGATE_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "FRAUDGATE_OTEL_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "FRAUDGATE_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Capabilities.Backend == "" {
		return errors.New("capabilities.backend is required")
	}
	if cfg.Capabilities.AssessTimeout <= 0 {
		return errors.New("capabilities.assess_timeout must be > 0")
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
