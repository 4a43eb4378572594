package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/helix/pkg/tools"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.CoreURL)
	assert.Equal(t, "gpt-realtime", cfg.Model)
	assert.Equal(t, 15*time.Second, cfg.HandshakeTimeout)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.Equal(t, tools.DefaultInstructions, cfg.Instructions)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "helix.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
core_url: http://core.internal:9000
http_timeout: 10s
cache:
  backend: redis
  redis_addr: redis:6379
  ttl: 1h
`), 0o600))
	t.Setenv("HELIX_MODEL", "gpt-realtime-mini")
	t.Setenv("HELIX_CACHE_PREFIX", "test:")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, "http://core.internal:9000", cfg.CoreURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "gpt-realtime-mini", cfg.Model)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "test:", cfg.Cache.Prefix)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	var base Config
	require.NoError(t, v.Unmarshal(&base))
	require.NoError(t, base.Validate())

	bad := base
	bad.CoreURL = "localhost"
	bad.RealtimeURL = "https://api.openai.com"
	bad.Cache.Backend = "etcd"
	bad.Cache.EncryptionKey = "c2hvcnQ="
	bad.Cache.Redact = []string{"("}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "core_url")
	assert.Contains(t, err.Error(), "realtime_url")
	assert.Contains(t, err.Error(), "cache.backend")
	assert.Contains(t, err.Error(), "cache.encryption_key")
	assert.Contains(t, err.Error(), "cache.redact")
}
