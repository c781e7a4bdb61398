package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"photographer-backend/internal/cache"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the optional YAML file.
const EnvConfigFile = "CONFIG_FILE"

// Loader builds a Config from its layered sources. The same loader is reused
// by the watcher so a reload sees exactly the sources of the initial load.
type Loader struct {
	path string
}

// NewLoader creates a loader for the YAML file at path. An empty path skips
// the file layer.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// NewLoaderFromEnv reads the file path from CONFIG_FILE.
func NewLoaderFromEnv() *Loader {
	return NewLoader(os.Getenv(EnvConfigFile))
}

// Path returns the YAML file path, possibly empty.
func (l *Loader) Path() string {
	return l.path
}

// Load applies, from lowest to highest priority:
//  1. defaults in code
//  2. the YAML file
//  3. environment variables
//
// and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	if l.path != "" {
		if err := loadFile(l.path, cfg); err != nil {
			return nil, err
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, l.path)
	}
	fillPolicyDefaults(cfg.Cache.Namespaces)

	if err := applyEnvironment(cfg); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")
	cfg.Observability.Tracing.Environment = string(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// fillPolicyDefaults completes namespace policies that set only some fields.
func fillPolicyDefaults(policies map[string]cache.Policy) {
	def := cache.DefaultPolicy()
	for name, p := range policies {
		if p.MaxEntries == 0 {
			p.MaxEntries = def.MaxEntries
		}
		if p.TTL == 0 {
			p.TTL = def.TTL
		}
		policies[name] = p
	}
}

// env collects parse failures so every bad variable is reported at once.
type env struct {
	errs []error
}

func (e *env) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (e *env) list(key string, dst *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (e *env) integer(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *env) unsigned(key string, dst *uint32) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = uint32(n)
	}
}

func (e *env) boolean(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *env) float(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *env) duration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func applyEnvironment(cfg *Config) error {
	e := &env{}

	var environment string
	e.str("ENVIRONMENT", &environment)
	if environment != "" {
		cfg.Environment = Environment(strings.ToLower(environment))
	}

	e.str("SERVER_HOST", &cfg.Server.Host)
	e.integer("PORT", &cfg.Server.Port)
	e.integer("SERVER_PORT", &cfg.Server.Port)
	e.duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	e.list("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)

	e.str("LOG_LEVEL", &cfg.Logging.Level)

	e.str("DB_DRIVER", &cfg.Database.Driver)
	e.str("DATABASE_URL", &cfg.Database.DSN)
	e.str("DB_DSN", &cfg.Database.DSN)
	e.str("TABLE_NAME", &cfg.Database.TableName)
	e.duration("DB_SLOW_THRESHOLD", &cfg.Database.SlowThreshold)

	e.str("AWS_REGION", &cfg.AWS.Region)
	e.str("AWS_ENDPOINT_URL", &cfg.AWS.Endpoint)

	e.unsigned("BREAKER_FAILURE_THRESHOLD", &cfg.Breaker.FailureThreshold)
	e.duration("BREAKER_RESET_TIMEOUT", &cfg.Breaker.ResetTimeout)

	e.boolean("AUTH_ENABLED", &cfg.Auth.Enabled)
	e.str("JWT_SECRET", &cfg.Auth.SecretKey)
	e.str("JWT_ISSUER", &cfg.Auth.Issuer)
	e.list("JWT_AUDIENCE", &cfg.Auth.Audience)

	e.str("METRICS_NAMESPACE", &cfg.Observability.MetricsNamespace)
	e.boolean("TRACING_ENABLED", &cfg.Observability.Tracing.Enabled)
	e.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Observability.Tracing.Endpoint)
	e.float("TRACING_SAMPLE_RATE", &cfg.Observability.Tracing.SampleRate)
	e.boolean("CLOUDWATCH_ENABLED", &cfg.Observability.CloudWatch.Enabled)
	e.str("CLOUDWATCH_NAMESPACE", &cfg.Observability.CloudWatch.Namespace)

	e.boolean("EVENTS_ENABLED", &cfg.Events.Enabled)
	e.str("EVENT_BUS_NAME", &cfg.Events.EventBusName)

	e.str("BOOTSTRAP_FILE", &cfg.Bootstrap.DataFile)

	e.str("JOB_PURGE_EXPIRED", &cfg.Jobs.PurgeExpired)
	e.str("JOB_REPORT_STATS", &cfg.Jobs.ReportStats)

	if len(e.errs) > 0 {
		return fmt.Errorf("environment: %w", errors.Join(e.errs...))
	}
	return nil
}
