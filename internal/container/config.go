// Package container provides dependency injection and lifecycle management
// for the trash inspection workflow service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Event queue and worker pool configuration
	Queue QueueConfig

	// eForm API configuration
	Eform EformConfig

	// Back-office endpoint configuration
	BackOffice BackOfficeConfig

	// Form field labels
	Form FormConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite3 or mysql
	Driver string

	// Path to the SQLite database file
	Path string

	// DSN for MySQL
	DSN string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// SkipMigrations leaves the schema untouched on start
	SkipMigrations bool
}

// QueueConfig holds queue consumer settings.
type QueueConfig struct {
	NumberOfWorkers      int
	MaxParallelism       int
	PollInterval         time.Duration
	BatchSize            int
	LeaseDuration        time.Duration
	MaxAttempts          int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	StatsInterval        time.Duration

	// CaseLockRetries and CaseLockMaxDelay bound how long a Completed event waits for its case
	CaseLockRetries  int
	CaseLockMaxDelay time.Duration
}

// EformConfig holds eForm API settings.
type EformConfig struct {
	BaseURL              string
	APIKey               string
	Timeout              time.Duration
	RetryInitialInterval time.Duration
	RetryMaxElapsed      time.Duration
}

// BackOfficeConfig holds back-office callback settings.
type BackOfficeConfig struct {
	Endpoint  string
	Namespace string
	Operation string

	// Timeout bounds one callback
	Timeout time.Duration

	// AuthMode is basic or windows_domain
	AuthMode string
	Domain   string
	Username string
	Password string
}

// FormConfig holds the labels searched for in completed forms.
type FormConfig struct {
	ApprovalLabel string
	CommentLabel  string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			Path:            "data/trash-inspection.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Queue: QueueConfig{
			NumberOfWorkers:      1,
			MaxParallelism:       1,
			PollInterval:         time.Second,
			BatchSize:            10,
			LeaseDuration:        5 * time.Minute,
			MaxAttempts:          5,
			RetryInitialInterval: 5 * time.Second,
			RetryMaxInterval:     5 * time.Minute,
			StatsInterval:        15 * time.Second,
			CaseLockRetries:      200,
			CaseLockMaxDelay:     100 * time.Millisecond,
		},
		Eform: EformConfig{
			Timeout:              30 * time.Second,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxElapsed:      30 * time.Second,
		},
		BackOffice: BackOfficeConfig{
			AuthMode: "basic",
			Timeout:  30 * time.Second,
		},
		Form: FormConfig{
			ApprovalLabel: entity.DefaultApprovalLabel,
			CommentLabel:  entity.DefaultCommentLabel,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return fmt.Errorf("database.driver is required")
	}
	if c.Queue.NumberOfWorkers < 1 || c.Queue.MaxParallelism < 1 {
		return fmt.Errorf("queue workers and parallelism must be at least 1")
	}
	if c.Eform.BaseURL == "" {
		return fmt.Errorf("eform.base_url is required")
	}
	if c.BackOffice.Endpoint == "" {
		return fmt.Errorf("backoffice.endpoint is required")
	}
	if c.BackOffice.Username == "" {
		return fmt.Errorf("backoffice.username is required")
	}

	return nil
}
