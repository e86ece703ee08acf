package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/hamed0406/uptimebot/internal/gateway"
)

// --- fakes shared by the loop tests ---

type scriptedProber struct {
	mu    sync.Mutex
	codes []int
	errs  []error
	calls int
}

func (p *scriptedProber) Probe(ctx context.Context, target string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return 0, p.errs[i]
	}
	if i < len(p.codes) {
		return p.codes[i], nil
	}
	return 200, nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	batches [][]gateway.Update
	errs    []error
	offsets []int64
}

func (f *fakeFetcher) FetchUpdates(ctx context.Context, offset int64) ([]gateway.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.offsets)
	f.offsets = append(f.offsets, offset)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	return nil, nil
}

type cursorStore struct {
	mu     sync.Mutex
	cursor int64
	fail   bool
	saves  int
}

func (c *cursorStore) LoadCursor(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor, nil
}

func (c *cursorStore) SaveCursor(ctx context.Context, v int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.fail {
		return errors.New("disk full")
	}
	c.cursor = v
	return nil
}

func (c *cursorStore) get() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

type handlerFunc func(ctx context.Context, u gateway.Update) error

func (f handlerFunc) Handle(ctx context.Context, u gateway.Update) error { return f(ctx, u) }

type sentMsg struct {
	chat int64
	text string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMsg
	fail map[int64]bool
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[chatID] {
		return errors.New("chat not found")
	}
	s.sent = append(s.sent, sentMsg{chat: chatID, text: text})
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordingAlerts struct {
	mu     sync.Mutex
	titles []string
	done   chan struct{}
}

func (a *recordingAlerts) Send(ctx context.Context, title, text string) error {
	a.mu.Lock()
	a.titles = append(a.titles, title)
	a.mu.Unlock()
	if a.done != nil {
		a.done <- struct{}{}
	}
	return nil
}
