// Package notify sends operator alerts about the monitored resource. These go
// to ops channels such as Slack, not to bot subscribers.
package notify

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans out to every notifier and returns all failures combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Log writes alerts to the process log. It is always on so transitions are
// recorded even without a webhook.
type Log struct {
	L *zap.Logger
}

func (l Log) Send(ctx context.Context, title, text string) error {
	l.L.Info("alert", zap.String("title", title), zap.String("text", text))
	return nil
}
