package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// 基础配置
	LogLevel string `mapstructure:"log_level"` // debug/info/warn/error
	Proxy    string `mapstructure:"proxy"`     // HTTP(S) 代理

	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`

	// AI 模型参数
	AIConfig AIConfig `mapstructure:"ai"`

	Reports  ReportsConfig  `mapstructure:"reports"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Showcase ShowcaseConfig `mapstructure:"showcase"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 单次分析请求上限
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

type ProvidersConfig struct {
	Timeout   time.Duration  `mapstructure:"timeout"` // 单个数据源请求超时
	CoinGecko ProviderConfig `mapstructure:"coingecko"`
	DefiLlama ProviderConfig `mapstructure:"defillama"`
	GitHub    ProviderConfig `mapstructure:"github"`
	Twitter   ProviderConfig `mapstructure:"twitter"`
	News      ProviderConfig `mapstructure:"news"`
	Binance   ProviderConfig `mapstructure:"binance"`
}

type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"` // key, token or bearer token depending on provider
}

type AIConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`    // OpenAI 兼容接口地址
	APIKey      string        `mapstructure:"api_key"`     // AI服务API密钥
	Model       string        `mapstructure:"model"`       // AI模型类型
	Temperature float32       `mapstructure:"temperature"` // 采样温度
	Timeout     time.Duration `mapstructure:"timeout"`
	Referer     string        `mapstructure:"referer"`
	Title       string        `mapstructure:"title"`
}

type ReportsConfig struct {
	Dir           string        `mapstructure:"dir"`
	RetentionCron string        `mapstructure:"retention_cron"`
	MaxAge        time.Duration `mapstructure:"max_age"` // 0 关闭清理
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"` // 为空时不启用缓存
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type ShowcaseConfig struct {
	File string `mapstructure:"file"` // 文件不存在时返回内置样例
}

// envBindings maps config keys to the environment variables the service has always read.
var envBindings = map[string]string{
	"ai.api_key":                  "OPENROUTER_API_KEY",
	"providers.coingecko.api_key": "COINGECKO_API_KEY",
	"providers.twitter.api_key":   "TWITTER_BEARER_TOKEN",
	"providers.github.api_key":    "GITHUB_TOKEN",
	"server.host":                 "HOST",
	"server.port":                 "PORT",
	"server.cors_origins":         "CORS_ORIGINS",
	"cache.redis_addr":            "REDIS_ADDR",
	"reports.dir":                 "REPORTS_DIR",
	"showcase.file":               "SHOWCASE_FILE",
	"proxy":                       "HTTPS_PROXY",
	"log_level":                   "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "debug")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.request_timeout", "110s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("providers.timeout", "15s")
	v.SetDefault("providers.coingecko.enabled", true)
	v.SetDefault("providers.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("providers.defillama.enabled", true)
	v.SetDefault("providers.defillama.base_url", "https://api.llama.fi")
	v.SetDefault("providers.github.enabled", true)
	v.SetDefault("providers.github.base_url", "https://api.github.com")
	v.SetDefault("providers.twitter.enabled", true)
	v.SetDefault("providers.twitter.base_url", "https://api.twitter.com")
	v.SetDefault("providers.news.enabled", true)
	v.SetDefault("providers.news.base_url", "https://news.google.com")
	v.SetDefault("providers.binance.enabled", true)
	v.SetDefault("providers.binance.base_url", "https://api.binance.com")

	v.SetDefault("ai.endpoint", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "openai/gpt-3.5-turbo")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.referer", "http://localhost:3000")
	v.SetDefault("ai.title", "DeepDive AI")

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.retention_cron", "0 0 3 * * *")
	v.SetDefault("reports.max_age", "720h")

	v.SetDefault("cache.ttl", "300s")

	v.SetDefault("showcase.file", "showcase_projects.json")
}

// Load builds the configuration from .env, an optional config file and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// CORS_ORIGINS 以逗号分隔
	if len(cfg.Server.CORSOrigins) == 1 && strings.Contains(cfg.Server.CORSOrigins[0], ",") {
		cfg.Server.CORSOrigins = strings.Split(cfg.Server.CORSOrigins[0], ",")
	}
	for i, origin := range cfg.Server.CORSOrigins {
		cfg.Server.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}
	if c.AIConfig.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Reports.MaxAge < 0 {
		return fmt.Errorf("reports.max_age must not be negative")
	}
	if c.Reports.Dir == "" {
		return fmt.Errorf("reports.dir is required")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
