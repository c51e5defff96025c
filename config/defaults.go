package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	// Store
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.ioTimeout", 10*time.Second)

	// Redis
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.poolTimeout", 5*time.Second)
	v.SetDefault("redis.key", "mdsession:sessionmap")

	// Retry
	v.SetDefault("retry.maxRetries", 3)
	v.SetDefault("retry.initialInterval", 100*time.Millisecond)
	v.SetDefault("retry.maxInterval", 5*time.Second)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
