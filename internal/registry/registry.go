// Package registry is the in-memory view of subscribers, kept in lockstep
// with a repo.SubscriberStore.
//
// A single mutex serializes every call. Mutations write the store first and
// only touch the map once the write succeeded, so after any call returns the
// map and the durable records agree.
package registry

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/repo"
)

type Registry struct {
	mu    sync.Mutex
	store repo.SubscriberStore
	subs  map[int64]domain.Subscriber
	log   *zap.Logger
}

// Load reads every stored subscriber. A failure here is a startup failure.
func Load(ctx context.Context, store repo.SubscriberStore, log *zap.Logger) (*Registry, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}
	subs := make(map[int64]domain.Subscriber, len(all))
	for _, s := range all {
		subs[s.ExternalID] = s
	}
	log.Info("registry_loaded", zap.Int("subscribers", len(subs)))
	return &Registry{store: store, subs: subs, log: log}, nil
}

func (r *Registry) save(ctx context.Context, s domain.Subscriber) error {
	if err := r.store.Save(ctx, s); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	r.subs[s.ExternalID] = s
	return nil
}

func (r *Registry) Upsert(ctx context.Context, s domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, s)
}

// Touch registers a first-contact identity as unsubscribed, or refreshes the
// chat id and names of a known one. The subscribed flag of a known identity
// is never changed here.
func (r *Registry) Touch(ctx context.Context, s domain.Subscriber) (domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.subs[s.ExternalID]
	if !ok {
		s.Subscribed = false
		if err := r.save(ctx, s); err != nil {
			return domain.Subscriber{}, err
		}
		r.log.Info("subscriber_registered", zap.Int64("external_id", s.ExternalID), zap.Int64("chat_id", s.ChatID))
		return s, nil
	}

	s.Subscribed = cur.Subscribed
	if s == cur {
		return cur, nil
	}
	if err := r.save(ctx, s); err != nil {
		return domain.Subscriber{}, err
	}
	return s, nil
}

func (r *Registry) Find(externalID int64) (domain.Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[externalID]
	return s, ok
}

func (r *Registry) SetSubscribed(ctx context.Context, externalID int64, v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[externalID]
	if !ok {
		return domain.ErrSubscriberNotFound
	}
	if s.Subscribed == v {
		return nil
	}
	s.Subscribed = v
	return r.save(ctx, s)
}

func (r *Registry) Remove(ctx context.Context, externalID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[externalID]; !ok {
		return domain.ErrSubscriberNotFound
	}
	if err := r.store.Delete(ctx, externalID); err != nil {
		return &domain.StorageError{Op: "delete", Err: err}
	}
	delete(r.subs, externalID)
	return nil
}

// ListSubscribed returns a copy; order is by ExternalID.
func (r *Registry) ListSubscribed() []domain.Subscriber {
	return r.filter(func(s domain.Subscriber) bool { return s.Subscribed })
}

func (r *Registry) List() []domain.Subscriber {
	return r.filter(func(domain.Subscriber) bool { return true })
}

func (r *Registry) filter(keep func(domain.Subscriber) bool) []domain.Subscriber {
	r.mu.Lock()
	out := make([]domain.Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		if keep(s) {
			out = append(out, s)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}
