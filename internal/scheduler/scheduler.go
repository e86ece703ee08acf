// Package scheduler holds the three long-running loops of the bot: the
// health probe, inbound update ingest and notification dispatch. Each loop
// owns its cadence and returns only when its context is cancelled.
package scheduler

import (
	"context"
	"time"
)

// sleep waits for d or until ctx is done; it reports whether the loop should
// keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
