package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 30*time.Second, cfg.AIConfig.Timeout)
	assert.Equal(t, "openai/gpt-3.5-turbo", cfg.AIConfig.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.AIConfig.Endpoint)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "reports", cfg.Reports.Dir)
	assert.Equal(t, 720*time.Hour, cfg.Reports.MaxAge)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Providers.CoinGecko.Enabled)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, "showcase_projects.json", cfg.Showcase.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("TWITTER_BEARER_TOKEN", "tw-token")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "or-key", cfg.AIConfig.APIKey)
	assert.Equal(t, "gh-token", cfg.Providers.GitHub.APIKey)
	assert.Equal(t, "tw-token", cfg.Providers.Twitter.APIKey)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: info
providers:
  timeout: 5s
  binance:
    enabled: false
ai:
  model: deepseek/deepseek-chat
cache:
  redis_addr: localhost:6379
  ttl: 1m
reports:
  max_age: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Providers.Timeout)
	assert.False(t, cfg.Providers.Binance.Enabled)
	assert.True(t, cfg.Providers.DefiLlama.Enabled)
	assert.Equal(t, "deepseek/deepseek-chat", cfg.AIConfig.Model)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Zero(t, cfg.Reports.MaxAge)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8000"},
			Providers: ProvidersConfig{Timeout: time.Second},
			AIConfig:  AIConfig{Timeout: time.Second},
			Reports:   ReportsConfig{Dir: "reports"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "zero provider timeout", mutate: func(c *Config) { c.Providers.Timeout = 0 }, wantErr: true},
		{name: "zero ai timeout", mutate: func(c *Config) { c.AIConfig.Timeout = 0 }, wantErr: true},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }, wantErr: true},
		{name: "empty reports dir", mutate: func(c *Config) { c.Reports.Dir = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
