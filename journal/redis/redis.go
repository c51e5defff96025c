// Package redis provides a journal.Store keeping the session table blob under
// a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/hupe1980/mdsession/journal"
)

// DefaultKey is the key used when none is configured.
const DefaultKey = "mdsession:sessionmap"

// Options configures the Redis connection.
type Options struct {
	Address     string
	Password    string
	DB          int
	PoolSize    int
	PoolTimeout time.Duration
}

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Address,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		PoolTimeout: opts.PoolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// Store implements journal.Store on one Redis string key. SET replaces the
// value atomically, which gives the whole-blob semantics the table needs.
type Store struct {
	client *goredis.Client
	key    string
}

// New returns a Store using key (DefaultKey when empty).
func New(client *goredis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Key returns the Redis key holding the blob.
func (s *Store) Key() string { return s.key }

// Read fetches the blob. A missing key yields journal.ErrNotFound.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

// Write replaces the blob without expiry.
func (s *Store) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
