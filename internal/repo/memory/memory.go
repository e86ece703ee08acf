package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store keeps everything in process memory. Used by tests and by
// STORE_DRIVER=memory for throwaway runs.
type Store struct {
	mu     sync.RWMutex
	subs   map[int64]domain.Subscriber
	cursor int64
}

func New() *Store {
	return &Store{subs: make(map[int64]domain.Subscriber)}
}

func (m *Store) List(ctx context.Context) ([]domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out, nil
}

func (m *Store) Save(ctx context.Context, s domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ExternalID] = s
	return nil
}

func (m *Store) Delete(ctx context.Context, externalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, externalID)
	return nil
}

func (m *Store) LoadCursor(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor, nil
}

func (m *Store) SaveCursor(ctx context.Context, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = offset
	return nil
}

func (m *Store) Close() error { return nil }
