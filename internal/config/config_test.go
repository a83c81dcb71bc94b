package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
database:
  driver: sqlite3
  path: data/test.db
queue:
  number_of_workers: 3
  max_parallelism: 4
  poll_interval: 250ms
eform:
  base_url: http://eform.local
backoffice:
  endpoint: https://nav.local/WS/TrashInspection
  auth_mode: windows_domain
  domain: CORP
  username: svc-trash
form:
  approval_label: Godkendt?
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TI_BACKOFFICE_PASSWORD", "s3cret")
	t.Setenv("TI_EFORM_API_KEY", "key-1")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Queue.NumberOfWorkers)
	assert.Equal(t, 4, cfg.Queue.MaxParallelism)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.PollInterval)
	assert.Equal(t, "trash-inspection-input", cfg.Queue.Name)
	assert.Equal(t, "windows_domain", cfg.BackOffice.AuthMode)
	assert.Equal(t, "CORP", cfg.BackOffice.Domain)
	assert.Equal(t, "s3cret", cfg.BackOffice.Password)
	assert.Equal(t, "key-1", cfg.Eform.APIKey)
	assert.Equal(t, "Godkendt?", cfg.Form.ApprovalLabel)
	assert.Equal(t, "Kommentar", cfg.Form.CommentLabel, "unset label falls back to the default")
	assert.Equal(t, 30*time.Second, cfg.BackOffice.Timeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("TI_DB_DSN", "user:pw@tcp(db:3306)/trash?parseTime=true")
	t.Setenv("TI_DATABASE_DRIVER", "mysql")
	t.Setenv("TI_QUEUE_MAX_PARALLELISM", "8")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "user:pw@tcp(db:3306)/trash?parseTime=true", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Queue.MaxParallelism)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite3", Path: "x.db"},
		Queue:    QueueConfig{NumberOfWorkers: 1, MaxParallelism: 1, MaxAttempts: 3},
		Eform:    EformConfig{BaseURL: "http://eform.local"},
		BackOffice: BackOfficeConfig{
			Endpoint: "https://nav.local",
			AuthMode: "basic",
			Username: "svc",
		},
		Form: FormConfig{ApprovalLabel: "a", CommentLabel: "c"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: "database.driver"},
		{name: "mysql without dsn", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.dsn"},
		{name: "no workers", mutate: func(c *Config) { c.Queue.NumberOfWorkers = 0 }, wantErr: "number_of_workers"},
		{name: "no parallelism", mutate: func(c *Config) { c.Queue.MaxParallelism = 0 }, wantErr: "max_parallelism"},
		{name: "missing eform url", mutate: func(c *Config) { c.Eform.BaseURL = "" }, wantErr: "eform.base_url"},
		{name: "bad endpoint", mutate: func(c *Config) { c.BackOffice.Endpoint = "nav.local" }, wantErr: "backoffice.endpoint"},
		{name: "missing username", mutate: func(c *Config) { c.BackOffice.Username = "" }, wantErr: "backoffice.username"},
		{name: "unknown auth", mutate: func(c *Config) { c.BackOffice.AuthMode = "digest" }, wantErr: "auth_mode"},
		{name: "blank label", mutate: func(c *Config) { c.Form.CommentLabel = "  " }, wantErr: "comment_label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
