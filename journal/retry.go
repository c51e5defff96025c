package journal

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hupe1980/mdsession/logging"
	"github.com/hupe1980/mdsession/metrics"
)

// RetryConfig controls the exponential backoff of a RetryingStore.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries three times between 100ms and 5s.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:      3,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// RetryingStore decorates a Store with exponential backoff. ErrNotFound and
// context errors are not retried.
type RetryingStore struct {
	inner  Store
	cfg    RetryConfig
	logger logging.Logger
}

// NewRetryingStore wraps inner. A nil logger discards retry notices.
func NewRetryingStore(inner Store, cfg RetryConfig, logger logging.Logger) *RetryingStore {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &RetryingStore{inner: inner, cfg: cfg, logger: logger}
}

// Read reads from the wrapped store, retrying transient failures.
func (s *RetryingStore) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.retry(ctx, "read", func() error {
		var err error
		data, err = s.inner.Read(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Write writes to the wrapped store, retrying transient failures.
func (s *RetryingStore) Write(ctx context.Context, data []byte) error {
	return s.retry(ctx, "write", func() error {
		return s.inner.Write(ctx, data)
	})
}

func (s *RetryingStore) retry(ctx context.Context, op string, fn func() error) error {
	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(s.cfg.InitialInterval),
				backoff.WithMaxInterval(s.cfg.MaxInterval),
			),
			s.cfg.MaxRetries,
		),
		ctx,
	)

	return backoff.RetryNotify(operation, strategy, func(err error, d time.Duration) {
		metrics.StoreRetries.WithLabelValues(op).Inc()
		s.logger.Warn("retrying journal store operation", "op", op, "error", err, "backoff", d)
	})
}
