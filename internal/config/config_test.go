package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  api_key: secret
fetch:
  user_agent: grader-agent
  timeout_seconds: 45
  max_redirects: 3
pagespeed:
  api_key: psi-key
  timeout_seconds: 30
proxy:
  endpoint: https://proxy.example.com/scrape
  api_key: proxy-key
worker:
  concurrency: 4
  queue_depth: 32
storage:
  provider: gcs
  gcs_bucket: reports-bucket
  prefix: pdfs
email:
  api_key: re_test
  from_address: audits@example.com
report:
  brand_name: Example Grader
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.Equal(t, "grader-agent", cfg.Fetch.UserAgent)
	require.Equal(t, 3, cfg.Fetch.MaxRedirects)
	require.Equal(t, "psi-key", cfg.PageSpeed.APIKey)
	require.Equal(t, "reports-bucket", cfg.Storage.GCSBucket)
	require.Equal(t, "pdfs", cfg.Storage.Prefix)
	require.Equal(t, "Example Grader", cfg.Report.BrandName)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, 45*time.Second, cfg.FetchTimeout())
	require.Equal(t, 60*time.Second, cfg.ProxyTimeout(), "proxy timeout keeps its default")
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  api_key: k\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5, cfg.Fetch.MaxRedirects)
	require.Equal(t, 30, cfg.Fetch.TimeoutSeconds)
	require.Equal(t, "memory", cfg.Storage.Provider)
	require.Contains(t, cfg.PageSpeed.Endpoint, "runPagespeed")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Auth:    AuthConfig{APIKey: "k"},
		Fetch:   FetchConfig{TimeoutSeconds: 30, MaxRedirects: 5},
		Worker:  WorkerConfig{Concurrency: 2},
		Storage: StorageConfig{Provider: "memory"},
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"missing api key", func(c *Config) { c.Auth.APIKey = "" }, "auth.api_key"},
		{"invalid fetch timeout", func(c *Config) { c.Fetch.TimeoutSeconds = 0 }, "fetch.timeout_seconds"},
		{"invalid concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"gcs without bucket", func(c *Config) { c.Storage = StorageConfig{Provider: "gcs"} }, "storage.gcs_bucket"},
		{"unknown provider", func(c *Config) { c.Storage = StorageConfig{Provider: "s3"} }, "unknown storage provider"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}
