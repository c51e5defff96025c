// Package mdsession provides a high-level façade over the session table of a
// metadata server. Most applications interact with this package by:
//  1. Creating a Service via New() (optionally overriding the in-memory store)
//     or FromConfig()
//  2. Calling Start to load the persisted table
//  3. Using Sessions() from request handlers and Flush/Save to persist
//
// All defaults are safe for local development and testing; production
// deployments supply a durable store (journal/redis) and a structured logger.
package mdsession

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/mdsession/config"
	"github.com/hupe1980/mdsession/core"
	"github.com/hupe1980/mdsession/journal"
	"github.com/hupe1980/mdsession/journal/redis"
	"github.com/hupe1980/mdsession/logging"
	"github.com/hupe1980/mdsession/sessionmap"
)

// Options configures the Service.
type Options struct {
	// Store persists the table (defaults to an in-memory store).
	Store journal.Store

	// Retry wraps Store in a journal.RetryingStore unless DisableRetry is set.
	Retry        journal.RetryConfig
	DisableRetry bool

	// Notifier receives push sequence and cap release notifications.
	Notifier core.CapNotifier

	// MapOptions are applied to the session map after the fields above.
	MapOptions []func(o *sessionmap.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Service owns a session map and the store behind it.
type Service struct {
	opts     Options
	sessions *sessionmap.Map
	closers  []io.Closer
}

// New creates a Service with optional overrides.
func New(optFns ...func(o *Options)) *Service {
	opts := Options{
		Store:    journal.NewInMemoryStore(),
		Retry:    journal.DefaultRetryConfig,
		Notifier: core.NopCapNotifier{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	store := opts.Store
	if !opts.DisableRetry {
		store = journal.NewRetryingStore(store, opts.Retry, opts.Logger)
	}

	mapFns := append([]func(o *sessionmap.Options){func(o *sessionmap.Options) {
		o.Logger = opts.Logger
		o.Notifier = opts.Notifier
	}}, opts.MapOptions...)

	return &Service{opts: opts, sessions: sessionmap.New(store, mapFns...)}
}

// FromConfig builds a Service from loaded configuration, connecting to Redis
// when the redis backend is selected. optFns run after the configured values.
func FromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Service, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(level, cfg.Log.Format, false).WithComponent("sessionmap")

	var (
		store   journal.Store = journal.NewInMemoryStore()
		closers []io.Closer
	)

	if cfg.Store.Backend == config.BackendRedis {
		client, err := redis.NewClient(ctx, redis.Options{
			Address:     cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			PoolTimeout: cfg.Redis.PoolTimeout,
		})
		if err != nil {
			return nil, err
		}

		store = redis.New(client, cfg.Redis.Key)
		closers = append(closers, client)
	}

	fns := append([]func(o *Options){func(o *Options) {
		o.Store = store
		o.Logger = logger
		o.Retry = journal.RetryConfig{
			MaxRetries:      cfg.Retry.MaxRetries,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}
		o.MapOptions = append(o.MapOptions, func(mo *sessionmap.Options) {
			mo.IOTimeout = cfg.Store.IOTimeout
		})
	}}, optFns...)

	s := New(fns...)
	s.closers = closers

	return s, nil
}

// Start loads the persisted table and waits for the result.
func (s *Service) Start(ctx context.Context) error {
	if err := s.sessions.Load(nil).Wait(ctx); err != nil {
		return fmt.Errorf("load session table: %w", err)
	}

	s.opts.Logger.Info("session service started", "sessions", s.sessions.Len(), "version", uint64(s.sessions.Versions().Committed))

	return nil
}

// Sessions returns the session map.
func (s *Service) Sessions() *sessionmap.Map { return s.sessions }

// Flush persists every mutation made so far and waits for the store.
func (s *Service) Flush(ctx context.Context) error {
	return s.sessions.Save(nil, 0).Wait(ctx)
}

// Close cancels in-flight store I/O and releases the store connection.
func (s *Service) Close() error {
	s.sessions.Close()

	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}
