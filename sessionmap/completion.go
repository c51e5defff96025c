package sessionmap

import (
	"context"
	"sync"

	"github.com/hupe1980/mdsession/metrics"
)

// Completion is the pending result of a Load or Save. The optional callback
// passed with the request runs before Done is closed.
type Completion struct {
	fn   func(error)
	once sync.Once
	done chan struct{}
	err  error
}

func newCompletion(fn func(error)) *Completion {
	return &Completion{fn: fn, done: make(chan struct{})}
}

func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		if c.fn != nil {
			c.fn(err)
		}
		close(c.done)
	})
}

// Done returns a channel closed once the operation finished.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err returns the outcome once Done is closed, nil before.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the operation finished or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resolveAll(cs []*Completion, err error, kind string) {
	for _, c := range cs {
		c.resolve(err)
	}
	metrics.AddWaitersFired(kind, len(cs))
}
