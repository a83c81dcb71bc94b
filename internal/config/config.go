package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/trash-inspection/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Lease      LeaseConfig      `mapstructure:"lease"`
	Eform      EformConfig      `mapstructure:"eform"`
	BackOffice BackOfficeConfig `mapstructure:"backoffice"`
	Form       FormConfig       `mapstructure:"form"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration.
// Path is used by sqlite3, DSN by mysql.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// QueueConfig holds event queue and worker pool configuration
type QueueConfig struct {
	Name                 string        `mapstructure:"name"`
	NumberOfWorkers      int           `mapstructure:"number_of_workers"`
	MaxParallelism       int           `mapstructure:"max_parallelism"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	BatchSize            int           `mapstructure:"batch_size"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	StatsInterval        time.Duration `mapstructure:"stats_interval"`
}

// LeaseConfig holds queue message leases and the per-case lock
type LeaseConfig struct {
	Duration         time.Duration `mapstructure:"duration"`
	CaseLockRetries  int           `mapstructure:"case_lock_retries"`
	CaseLockMaxDelay time.Duration `mapstructure:"case_lock_max_delay"`
}

// EformConfig holds eForm API configuration
type EformConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	APIKey               string        `mapstructure:"api_key"`
	Timeout              time.Duration `mapstructure:"timeout"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxElapsed      time.Duration `mapstructure:"retry_max_elapsed"`
}

// BackOfficeConfig holds the back-office callback endpoint configuration
type BackOfficeConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Namespace string        `mapstructure:"namespace"`
	Operation string        `mapstructure:"operation"`
	Timeout   time.Duration `mapstructure:"timeout"`
	AuthMode  string        `mapstructure:"auth_mode"`
	Domain    string        `mapstructure:"domain"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
}

// FormConfig holds the labels of the form fields read on completion
type FormConfig struct {
	ApprovalLabel string `mapstructure:"approval_label"`
	CommentLabel  string `mapstructure:"comment_label"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional .env file, the config file and environment variables.
// An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("TI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a local .env file without overriding the environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "data/trash-inspection.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Queue defaults
	v.SetDefault("queue.name", "trash-inspection-input")
	v.SetDefault("queue.number_of_workers", 1)
	v.SetDefault("queue.max_parallelism", 1)
	v.SetDefault("queue.poll_interval", time.Second)
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.max_attempts", 5)
	v.SetDefault("queue.retry_initial_interval", 5*time.Second)
	v.SetDefault("queue.retry_max_interval", 5*time.Minute)
	v.SetDefault("queue.stats_interval", 15*time.Second)

	// Lease defaults
	v.SetDefault("lease.duration", 5*time.Minute)
	v.SetDefault("lease.case_lock_retries", 200)
	v.SetDefault("lease.case_lock_max_delay", 100*time.Millisecond)

	// eForm defaults
	v.SetDefault("eform.timeout", 30*time.Second)
	v.SetDefault("eform.retry_initial_interval", 500*time.Millisecond)
	v.SetDefault("eform.retry_max_elapsed", 30*time.Second)

	// Back office defaults
	v.SetDefault("backoffice.auth_mode", "basic")
	v.SetDefault("backoffice.timeout", 30*time.Second)

	// Form defaults
	v.SetDefault("form.approval_label", "Angiv om læs er Godkendt")
	v.SetDefault("form.comment_label", "Kommentar")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("database.dsn", "TI_DB_DSN")
	_ = v.BindEnv("eform.base_url", "TI_EFORM_BASE_URL")
	_ = v.BindEnv("eform.api_key", "TI_EFORM_API_KEY")
	_ = v.BindEnv("backoffice.endpoint", "TI_BACKOFFICE_ENDPOINT")
	_ = v.BindEnv("backoffice.domain", "TI_BACKOFFICE_DOMAIN")
	_ = v.BindEnv("backoffice.username", "TI_BACKOFFICE_USERNAME")
	_ = v.BindEnv("backoffice.password", "TI_BACKOFFICE_PASSWORD")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate database
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite3")
		}
	case "mysql":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for mysql")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite3 or mysql, got %q", c.Database.Driver)
	}

	// Validate worker pool
	if c.Queue.NumberOfWorkers < 1 {
		return fmt.Errorf("queue.number_of_workers must be at least 1")
	}
	if c.Queue.MaxParallelism < 1 {
		return fmt.Errorf("queue.max_parallelism must be at least 1")
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue.max_attempts must be at least 1")
	}

	// Validate external systems
	if err := utils.ValidateEndpoint(c.Eform.BaseURL); err != nil {
		return fmt.Errorf("eform.base_url: %w", err)
	}
	if err := utils.ValidateEndpoint(c.BackOffice.Endpoint); err != nil {
		return fmt.Errorf("backoffice.endpoint: %w", err)
	}
	if c.BackOffice.Username == "" {
		return fmt.Errorf("backoffice.username is required")
	}
	switch strings.ToLower(c.BackOffice.AuthMode) {
	case "basic", "windows_domain", "ntlm":
	default:
		return fmt.Errorf("backoffice.auth_mode must be basic or windows_domain, got %q", c.BackOffice.AuthMode)
	}

	// Validate form labels
	if strings.TrimSpace(c.Form.ApprovalLabel) == "" {
		return fmt.Errorf("form.approval_label is required")
	}
	if strings.TrimSpace(c.Form.CommentLabel) == "" {
		return fmt.Errorf("form.comment_label is required")
	}

	return nil
}

// Address returns the HTTP listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
