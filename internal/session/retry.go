package session

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds the retries a caller performs against the store when a
// session is not yet visible. The chunk path gets exactly one short-delay
// retry; coordinators pass Attempts: 1.
type RetryPolicy struct {
	Attempts int           // retries after the first try, not total tries
	Delay    time.Duration // wait before each retry
}

// Do runs op, retrying on ErrNotFound up to the policy's attempt bound. Any
// other error, or success, stops the loop immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	err := op()
	for attempt := 0; attempt < p.Attempts && errors.Is(err, ErrNotFound); attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
		err = op()
	}
	return err
}
