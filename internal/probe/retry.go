package probe

import (
	"context"
	"errors"
	"time"
)

// RetryProber retries connect errors inside a single probe. HTTP responses,
// including 5xx, are returned immediately.
type RetryProber struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration
}

func (r *RetryProber) Probe(ctx context.Context, target string) (int, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var (
		code int
		err  error
	)
	for i := 0; i < attempts; i++ {
		code, err = r.Inner.Probe(ctx, target)
		var ce *ConnectError
		if err == nil || !errors.As(err, &ce) {
			return code, err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return code, err
			case <-time.After(r.Backoff):
			}
		}
	}
	return code, err
}
