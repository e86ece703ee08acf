package repo

import (
	"context"

	"github.com/hamed0406/uptimebot/internal/domain"
)

// Ports (interfaces): the registry owns the only instance and is the only caller.
type SubscriberStore interface {
	List(ctx context.Context) ([]domain.Subscriber, error)
	// Save upserts by ExternalID.
	Save(ctx context.Context, s domain.Subscriber) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, externalID int64) error
}

// CursorStore is the single durable cell holding the last processed update id.
// A fresh store returns 0.
type CursorStore interface {
	LoadCursor(ctx context.Context) (int64, error)
	SaveCursor(ctx context.Context, offset int64) error
}

type Store interface {
	SubscriberStore
	CursorStore
	Close() error
}
