// Package config loads orchestrator settings from defaults, an optional config file
// and HELIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aretw0/helix/pkg/persistence/middleware"
	"github.com/aretw0/helix/pkg/tools"
)

const (
	configName = "helix"
	configDir  = ".helix"
	envPrefix  = "HELIX"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheFile   = "file"
)

// Config is the decoded settings tree.
type Config struct {
	CoreURL          string        `mapstructure:"core_url"`
	RealtimeURL      string        `mapstructure:"realtime_url"`
	Model            string        `mapstructure:"model"`
	Voice            string        `mapstructure:"voice"`
	Instructions     string        `mapstructure:"instructions"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	LogLevel         string        `mapstructure:"log_level"`
	ListenAddr       string        `mapstructure:"listen_addr"`
	AllowedOrigin    string        `mapstructure:"allowed_origin"`
	Cache            CacheConfig   `mapstructure:"cache"`
}

// CacheConfig selects and configures the collection cache store.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	Dir           string        `mapstructure:"dir"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	// EncryptionKey is a base64 AES-256 key; when set, snapshot rows are sealed at rest.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	// Redact lists regular expressions; row fields whose key matches are masked before saving.
	Redact []string `mapstructure:"redact"`
}

// SetDefaults registers every key with its default so environment variables bind.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("core_url", "http://localhost:8000")
	v.SetDefault("realtime_url", "wss://api.openai.com/v1/realtime")
	v.SetDefault("model", "gpt-realtime")
	v.SetDefault("voice", "marin")
	v.SetDefault("instructions", tools.DefaultInstructions)
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("handshake_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", "127.0.0.1:8787")
	v.SetDefault("allowed_origin", "")
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.dir", filepath.Join(configDir, "cache"))
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", "helix:cache:")
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("cache.encryption_key", "")
	v.SetDefault("cache.fallback_keys", []string{})
	v.SetDefault("cache.redact", []string{})
}

// Load reads configuration into v and decodes it.
// When file is empty, helix.{yaml,toml,json} is searched in the working directory
// and in ~/.helix; a missing file is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, configDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at connect time.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.CoreURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("core_url: %q is not an absolute URL", c.CoreURL))
	}
	if u, err := url.Parse(c.RealtimeURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, fmt.Errorf("realtime_url: %q must be a ws or wss URL", c.RealtimeURL))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, errors.New("http_timeout: must not be negative"))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake_timeout: must be positive"))
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr: required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	if c.Cache.EncryptionKey != "" {
		if _, err := middleware.DecodeKey(c.Cache.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("cache.encryption_key: %w", err))
		}
	}
	for i, k := range c.Cache.FallbackKeys {
		if _, err := middleware.DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("cache.fallback_keys[%d]: %w", i, err))
		}
	}
	for _, p := range c.Cache.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("cache.redact: %w", err))
		}
	}
	return errors.Join(errs...)
}
