// Package config loads the service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/jobs"
	"photographer-backend/internal/observability"
	"photographer-backend/internal/resilience"
	"photographer-backend/internal/service/photographer"
)

// Environment is the deployment stage.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Environment   Environment         `yaml:"environment"`
	Server        Server              `yaml:"server"`
	Logging       Logging             `yaml:"logging"`
	Database      Database            `yaml:"database"`
	AWS           AWS                 `yaml:"aws"`
	Cache         Cache               `yaml:"cache"`
	Breaker       resilience.Settings `yaml:"breaker"`
	Auth          Auth                `yaml:"auth"`
	Observability Observability       `yaml:"observability"`
	Events        Events              `yaml:"events"`
	Bootstrap     Bootstrap           `yaml:"bootstrap"`
	Jobs          Jobs                `yaml:"jobs"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// Addr is the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Logging struct {
	Level string `yaml:"level"`
}

type Database struct {
	Driver string `yaml:"driver"`
	// DSN is the sqlite file or postgres connection string.
	DSN           string        `yaml:"dsn"`
	TableName     string        `yaml:"tableName"`
	SlowThreshold time.Duration `yaml:"slowThreshold"`
}

type AWS struct {
	Region string `yaml:"region"`
	// Endpoint overrides the service endpoints, e.g. for a local DynamoDB.
	Endpoint string `yaml:"endpoint"`
}

type Cache struct {
	// Namespaces holds per-view policies keyed by namespace name.
	Namespaces map[string]cache.Policy `yaml:"namespaces"`
}

type Auth struct {
	Enabled   bool          `yaml:"enabled"`
	SecretKey string        `yaml:"secretKey"`
	Issuer    string        `yaml:"issuer"`
	Audience  []string      `yaml:"audience"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	WriteRole string        `yaml:"writeRole"`
}

type Observability struct {
	MetricsNamespace string                      `yaml:"metricsNamespace"`
	Tracing          observability.TracingConfig `yaml:"tracing"`
	CloudWatch       CloudWatch                  `yaml:"cloudwatch"`
}

type CloudWatch struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type Events struct {
	Enabled        bool          `yaml:"enabled"`
	EventBusName   string        `yaml:"eventBusName"`
	PublishTimeout time.Duration `yaml:"publishTimeout"`
}

type Bootstrap struct {
	// DataFile seeds an empty store at startup. Empty disables seeding.
	DataFile string `yaml:"dataFile"`
}

type Jobs struct {
	jobs.Schedules `yaml:",inline"`
	ReportTimeout  time.Duration `yaml:"reportTimeout"`
}

// Default returns a configuration that runs locally without any file or
// environment.
func Default() *Config {
	policies := make(map[string]cache.Policy, len(photographer.Namespaces()))
	for _, name := range photographer.Namespaces() {
		policies[name] = cache.DefaultPolicy()
	}

	return &Config{
		Environment: Development,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: Logging{Level: "info"},
		Database: Database{
			Driver:        DriverMemory,
			TableName:     "photographers",
			SlowThreshold: 200 * time.Millisecond,
		},
		AWS:     AWS{Region: "us-east-1"},
		Cache:   Cache{Namespaces: policies},
		Breaker: resilience.DefaultSettings("proximity"),
		Auth: Auth{
			Issuer:    "photographer-backend",
			TokenTTL:  8 * time.Hour,
			WriteRole: "editor",
		},
		Observability: Observability{
			MetricsNamespace: "photographer",
			Tracing: observability.TracingConfig{
				ServiceName: "photographer-backend",
				Endpoint:    "localhost:4317",
				Insecure:    true,
				SampleRate:  1,
			},
			CloudWatch: CloudWatch{Namespace: "Photographer/Cache"},
		},
		Events: Events{
			EventBusName:   "default",
			PublishTimeout: 2 * time.Second,
		},
		Jobs: Jobs{
			Schedules: jobs.Schedules{
				PurgeExpired: "@every 1m",
				ReportStats:  "@every 5m",
			},
			ReportTimeout: 10 * time.Second,
		},
	}
}

// Validate checks every section. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		add("unknown environment %q", c.Environment)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("server.shutdownTimeout must be positive")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Database.DSN == "" {
			add("database.dsn is required for driver %s", c.Database.Driver)
		}
	case DriverDynamoDB:
		if c.Database.TableName == "" {
			add("database.tableName is required for driver dynamodb")
		}
	default:
		add("unknown database.driver %q", c.Database.Driver)
	}

	for _, name := range photographer.Namespaces() {
		policy, ok := c.Cache.Namespaces[name]
		if !ok {
			continue
		}
		if err := policy.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: cache.namespaces.%s: %w", ErrInvalidConfig, name, err))
		}
	}
	for name := range c.Cache.Namespaces {
		if !slices.Contains(photographer.Namespaces(), name) {
			add("unknown cache namespace %q", name)
		}
	}

	if err := c.Breaker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: breaker: %w", ErrInvalidConfig, err))
	}

	if c.Auth.Enabled {
		if len(c.Auth.SecretKey) < 32 {
			add("auth.secretKey must be at least 32 bytes when auth is enabled")
		}
		if c.Auth.Issuer == "" {
			add("auth.issuer is required when auth is enabled")
		}
	}

	if c.Observability.MetricsNamespace == "" {
		add("observability.metricsNamespace is required")
	}
	if rate := c.Observability.Tracing.SampleRate; rate < 0 || rate > 1 {
		add("observability.tracing.sampleRate %v outside [0,1]", rate)
	}
	if c.Events.Enabled && c.Events.EventBusName == "" {
		add("events.eventBusName is required when events are enabled")
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether hot reload and development logging apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}
