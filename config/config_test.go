package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Store.IOTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "mdsession:sessionmap", cfg.Redis.Key)
	assert.Equal(t, uint64(3), cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`store:
  backend: redis
  ioTimeout: 2s
redis:
  address: redis.internal:6379
  key: mds.a:sessions
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.prod.yaml"), yaml, 0o600))

	t.Setenv("MDSESSION_REDIS_DB", "4")
	t.Setenv("MDSESSION_LOG_LEVEL", "warn")

	cfg, err := Load("prod", dir)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 2*time.Second, cfg.Store.IOTimeout)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, "mds.a:sessions", cfg.Redis.Key)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.bad.yaml"), []byte("store:\n  backend: etcd\n"), 0o600))

	_, err := Load("bad", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid store backend")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"redis backend", func(c *Config) { c.Store.Backend = BackendRedis }, true},
		{"redis without address", func(c *Config) { c.Store.Backend = BackendRedis; c.Redis.Address = "" }, false},
		{"redis without key", func(c *Config) { c.Store.Backend = BackendRedis; c.Redis.Key = "" }, false},
		{"negative timeout", func(c *Config) { c.Store.IOTimeout = -time.Second }, false},
		{"inverted retry intervals", func(c *Config) { c.Retry.MaxInterval = time.Millisecond }, false},
		{"unknown level", func(c *Config) { c.Log.Level = "chatty" }, false},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
