package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/mdsession/logging"
)

func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Backend) {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address must be specified for redis backend")
		}
		if c.Redis.Key == "" {
			return errors.New("redis key must be specified for redis backend")
		}
		if c.Redis.PoolSize < 1 {
			return errors.New("redis pool size must be positive")
		}
	default:
		return fmt.Errorf("invalid store backend: %s. Must be 'memory' or 'redis'", c.Store.Backend)
	}

	if c.Store.IOTimeout < 0 {
		return errors.New("store io timeout must not be negative")
	}

	if c.Retry.InitialInterval <= 0 || c.Retry.MaxInterval < c.Retry.InitialInterval {
		return errors.New("retry intervals must be positive and maxInterval >= initialInterval")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s. Must be 'text' or 'json'", c.Log.Format)
	}

	return nil
}

func bindEnvVars(v *viper.Viper) {
	// Store
	_ = v.BindEnv("store.backend", "MDSESSION_STORE_BACKEND")
	_ = v.BindEnv("store.ioTimeout", "MDSESSION_STORE_IO_TIMEOUT")

	// Redis
	_ = v.BindEnv("redis.address", "MDSESSION_REDIS_ADDRESS")
	_ = v.BindEnv("redis.password", "MDSESSION_REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "MDSESSION_REDIS_DB")
	_ = v.BindEnv("redis.key", "MDSESSION_REDIS_KEY")

	// Retry
	_ = v.BindEnv("retry.maxRetries", "MDSESSION_RETRY_MAX_RETRIES")

	// Log
	_ = v.BindEnv("log.level", "MDSESSION_LOG_LEVEL")
	_ = v.BindEnv("log.format", "MDSESSION_LOG_FORMAT")
}
