package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Highlight HighlightConfig `yaml:"highlight"`
	Settings  SettingsConfig  `yaml:"settings"`
}

type ServerConfig struct {
	Addr             string `yaml:"addr"`
	MaxDocuments     int    `yaml:"max_documents"`
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_s"`
}

// RedisConfig is optional: an empty Host disables every Redis-backed feature.
type RedisConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MinIOConfig is optional: an empty Endpoint disables snapshot export.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

type FetcherConfig struct {
	TimeoutSecs   int         `yaml:"timeout_secs"`
	MaxRedirects  int         `yaml:"max_redirects"`
	MaxBodyBytes  int64       `yaml:"max_body_bytes"`
	HostDelayMs   int         `yaml:"host_delay_ms"`
	MaxRetries    int         `yaml:"max_retries"`
	RetryBaseMs   int         `yaml:"retry_base_ms"`
	UserAgent     string      `yaml:"user_agent"`
	AllowPrivate  bool        `yaml:"allow_private"`
	RespectRobots bool        `yaml:"respect_robots"`
	Proxy         ProxyConfig `yaml:"proxy"`
}

// ProxyConfig is optional: an empty File sends requests directly.
type ProxyConfig struct {
	File            string `yaml:"file"`
	HealthCooldownS int    `yaml:"health_cooldown_s"`
}

type HighlightConfig struct {
	BgColor    string `yaml:"bg_color"`
	FontSizePx int    `yaml:"font_size_px"`
}

type SettingsConfig struct {
	Profile string `yaml:"profile"`
}

const (
	defaultServerAddr       = ":8080"
	defaultMaxDocuments     = 64
	defaultShutdownTimeoutS = 10
	defaultRedisPort        = 6379
	defaultRedisPoolSize    = 10
	defaultMinIOBucket      = "linkmark-snapshots"
	defaultTimeoutSecs      = 30
	defaultMaxRedirects     = 5
	defaultMaxBodyBytes     = 10 * 1024 * 1024
	defaultUserAgent        = "Linkmark/1.0"
	defaultHostDelayMs      = 1000
	defaultMaxRetries       = 2
	defaultRetryBaseMs      = 500
	defaultProxyCooldownS   = 60
	defaultBgColor          = "#FF0000"
	defaultFontSizePx       = 12
	defaultSettingsProfile  = "default"
)

func LoadFromEnv() *Config {
	cfg := &Config{Fetcher: FetcherConfig{RespectRobots: true}}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{Fetcher: FetcherConfig{RespectRobots: true}}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
	if c.Server.MaxDocuments == 0 {
		c.Server.MaxDocuments = defaultMaxDocuments
	}
	if c.Server.ShutdownTimeoutS == 0 {
		c.Server.ShutdownTimeoutS = defaultShutdownTimeoutS
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = defaultRedisPort
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = defaultRedisPoolSize
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = defaultMinIOBucket
	}
	if c.Fetcher.TimeoutSecs == 0 {
		c.Fetcher.TimeoutSecs = defaultTimeoutSecs
	}
	if c.Fetcher.MaxRedirects == 0 {
		c.Fetcher.MaxRedirects = defaultMaxRedirects
	}
	if c.Fetcher.MaxBodyBytes == 0 {
		c.Fetcher.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Fetcher.HostDelayMs == 0 {
		c.Fetcher.HostDelayMs = defaultHostDelayMs
	}
	if c.Fetcher.MaxRetries == 0 {
		c.Fetcher.MaxRetries = defaultMaxRetries
	}
	if c.Fetcher.RetryBaseMs == 0 {
		c.Fetcher.RetryBaseMs = defaultRetryBaseMs
	}
	if c.Fetcher.Proxy.HealthCooldownS == 0 {
		c.Fetcher.Proxy.HealthCooldownS = defaultProxyCooldownS
	}
	if c.Fetcher.UserAgent == "" {
		c.Fetcher.UserAgent = defaultUserAgent
	}
	if c.Highlight.BgColor == "" {
		c.Highlight.BgColor = defaultBgColor
	}
	if c.Highlight.FontSizePx == 0 {
		c.Highlight.FontSizePx = defaultFontSizePx
	}
	if c.Settings.Profile == "" {
		c.Settings.Profile = defaultSettingsProfile
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LINKMARK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LINKMARK_MAX_DOCUMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.MaxDocuments = n
		}
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = p
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = d
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.MinIO.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.MinIO.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.MinIO.SecretKey = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.MinIO.UseSSL = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		c.MinIO.Bucket = v
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			c.Fetcher.TimeoutSecs = s
		}
	}
	if v := os.Getenv("FETCH_MAX_REDIRECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetcher.MaxRedirects = n
		}
	}
	if v := os.Getenv("FETCH_HOST_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetcher.HostDelayMs = n
		}
	}
	if v := os.Getenv("FETCH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetcher.MaxRetries = n
		}
	}
	if v := os.Getenv("FETCH_RETRY_BASE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetcher.RetryBaseMs = n
		}
	}
	if v := os.Getenv("PROXY_FILE"); v != "" {
		c.Fetcher.Proxy.File = v
	}
	if v := os.Getenv("PROXY_HEALTH_COOLDOWN_S"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			c.Fetcher.Proxy.HealthCooldownS = s
		}
	}
	if v := os.Getenv("FETCH_ALLOW_PRIVATE"); v != "" {
		c.Fetcher.AllowPrivate = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("FETCH_RESPECT_ROBOTS"); v != "" {
		c.Fetcher.RespectRobots = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HIGHLIGHT_BG_COLOR"); v != "" {
		c.Highlight.BgColor = v
	}
	if v := os.Getenv("HIGHLIGHT_FONT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Highlight.FontSizePx = n
		}
	}
	if v := os.Getenv("SETTINGS_PROFILE"); v != "" {
		c.Settings.Profile = v
	}
}
