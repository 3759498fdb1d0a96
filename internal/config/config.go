// Package config loads the application configuration from a yaml file with
// environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure. It contains
// settings for the environment, HTTP server, database connection, porch
// behavior, and graceful shutdown.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DB_USERNAME" env-default:"npg_rw" yaml:"username"`
		// Password for database authentication
		Password string `env:"DB_PASSWORD" env-default:"" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DB_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DB_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DB_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DB_NAME" env-default:"npg_porch" yaml:"name"`
		// Schema is the Postgres schema holding the porch tables
		Schema string `env:"DB_SCHEMA" env-default:"npg_porch" yaml:"schema"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DB_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DB_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DB_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Porch contains task tracking behavior settings
	Porch struct {
		// DefaultPageLimit is the task listing page size used when the client does not pass one
		DefaultPageLimit uint `env:"PORCH_DEFAULT_PAGE_LIMIT" env-default:"20" yaml:"defaultPageLimit"`
		// MaxPageLimit caps the task listing page size a client may request
		MaxPageLimit uint `env:"PORCH_MAX_PAGE_LIMIT" env-default:"100" yaml:"maxPageLimit"`
		// MaxClaimLimit caps the number of tasks a single claim request may take
		MaxClaimLimit uint `env:"PORCH_MAX_CLAIM_LIMIT" env-default:"100" yaml:"maxClaimLimit"`
		// ClaimTTL is how long a claim may sit without a state change before
		// the sweeper returns the task to the pending pool; 0 disables the sweeper
		ClaimTTL time.Duration `env:"PORCH_CLAIM_TTL" env-default:"0" yaml:"claimTTL"`
		// SweepInterval is how often the claim sweeper runs
		SweepInterval time.Duration `env:"PORCH_SWEEP_INTERVAL" env-default:"1m" yaml:"sweepInterval"`
	} `yaml:"porch"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for a yaml config file and returns a filled Config
// struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
