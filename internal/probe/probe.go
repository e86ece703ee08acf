package probe

import (
	"context"
	"fmt"
)

// Prober issues one request to target. Any HTTP response, whatever its code,
// is a result; only failing to get a response is an error (*ConnectError).
type Prober interface {
	Probe(ctx context.Context, target string) (int, error)
}

// ConnectError means the target could not be reached at all.
type ConnectError struct {
	Target string
	// DNS is the resolver classification of the target host, when known.
	DNS string
	Err error
}

func (e *ConnectError) Error() string {
	if e.DNS != "" {
		return fmt.Sprintf("connect %s: %v (dns=%s)", e.Target, e.Err, e.DNS)
	}
	return fmt.Sprintf("connect %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
