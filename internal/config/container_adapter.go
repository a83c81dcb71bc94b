package config

import (
	"github.com/garyjia/trash-inspection/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Queue: container.QueueConfig{
			NumberOfWorkers:      c.Queue.NumberOfWorkers,
			MaxParallelism:       c.Queue.MaxParallelism,
			PollInterval:         c.Queue.PollInterval,
			BatchSize:            c.Queue.BatchSize,
			LeaseDuration:        c.Lease.Duration,
			MaxAttempts:          c.Queue.MaxAttempts,
			RetryInitialInterval: c.Queue.RetryInitialInterval,
			RetryMaxInterval:     c.Queue.RetryMaxInterval,
			StatsInterval:        c.Queue.StatsInterval,
			CaseLockRetries:      c.Lease.CaseLockRetries,
			CaseLockMaxDelay:     c.Lease.CaseLockMaxDelay,
		},
		Eform: container.EformConfig{
			BaseURL:              c.Eform.BaseURL,
			APIKey:               c.Eform.APIKey,
			Timeout:              c.Eform.Timeout,
			RetryInitialInterval: c.Eform.RetryInitialInterval,
			RetryMaxElapsed:      c.Eform.RetryMaxElapsed,
		},
		BackOffice: container.BackOfficeConfig{
			Endpoint:  c.BackOffice.Endpoint,
			Namespace: c.BackOffice.Namespace,
			Operation: c.BackOffice.Operation,
			Timeout:   c.BackOffice.Timeout,
			AuthMode:  c.BackOffice.AuthMode,
			Domain:    c.BackOffice.Domain,
			Username:  c.BackOffice.Username,
			Password:  c.BackOffice.Password,
		},
		Form: container.FormConfig{
			ApprovalLabel: c.Form.ApprovalLabel,
			CommentLabel:  c.Form.CommentLabel,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
