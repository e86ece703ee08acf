package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/command"
	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/gateway"
	"github.com/hamed0406/uptimebot/internal/monitor"
	"github.com/hamed0406/uptimebot/internal/readiness"
	"github.com/hamed0406/uptimebot/internal/registry"
	"github.com/hamed0406/uptimebot/internal/repo/memory"
)

// --- fakes ---

type fakeGateway struct {
	mu      sync.Mutex
	pending []gateway.Update
	sent    []string
	closes  atomic.Int32
}

func (f *fakeGateway) FetchUpdates(ctx context.Context, offset int64) ([]gateway.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gateway.Update
	for _, u := range f.pending {
		if u.ID > offset {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeGateway) Close() error {
	f.closes.Add(1)
	return nil
}

func (f *fakeGateway) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type countingStore struct {
	*memory.Store
	closes atomic.Int32
}

func (c *countingStore) Close() error {
	c.closes.Add(1)
	return errors.New("store close failed")
}

type okProber struct{}

func (okProber) Probe(ctx context.Context, target string) (int, error) { return 200, nil }

func startUpdate(id, user int64) gateway.Update {
	return gateway.Update{ID: id, Message: &gateway.Message{
		From: &gateway.User{ID: user, FirstName: "Ann"},
		Chat: &gateway.Chat{ID: user * 10},
		Text: "/start",
	}}
}

func fastOptions() Options {
	return Options{
		PingInterval:       20 * time.Millisecond,
		UpdatesInterval:    10 * time.Millisecond,
		DownInterval:       20 * time.Millisecond,
		UpInterval:         20 * time.Millisecond,
		IdleInterval:       5 * time.Millisecond,
		MaxConcurrentSends: 2,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --- tests ---

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}, Options{}); err == nil {
		t.Fatal("want error for empty deps")
	}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.New()}
	_ = store.SaveCursor(ctx, 4)

	reg, err := registry.Load(ctx, store, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	gw := &fakeGateway{pending: []gateway.Update{startUpdate(4, 1), startUpdate(5, 42)}}
	res := monitor.NewResource("site", "https://example.com")

	o, err := New(Deps{
		Logger:   zap.NewNop(),
		Gateway:  gw,
		Store:    store,
		Registry: reg,
		Resource: res,
		Gate:     readiness.New(),
		Prober:   okProber{},
	}, fastOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start: %v", err)
	}

	report := "site: status code 200 for https://example.com"
	waitFor(t, "reply and report", func() bool {
		var replied, reported bool
		for _, m := range gw.messages() {
			replied = replied || m == command.ReplyStarted
			reported = reported || m == report
		}
		return replied && reported
	})

	if !o.Gate().Open() {
		t.Fatal("gate should be open")
	}
	if s, ok := reg.Find(42); !ok || !s.Subscribed {
		t.Fatalf("42 should be subscribed: %+v", s)
	}
	if _, ok := reg.Find(1); ok {
		t.Fatal("update 4 is at the cursor and must not be handled")
	}
	if c, _ := store.LoadCursor(ctx); c != 5 {
		t.Fatalf("cursor = %d, want 5", c)
	}

	err = o.Shutdown()
	if err == nil {
		t.Fatal("want store close error surfaced")
	}
	_ = o.Shutdown()

	select {
	case <-o.Done():
	default:
		t.Fatal("Done not closed after Shutdown")
	}
	if gw.closes.Load() != 1 || store.closes.Load() != 1 {
		t.Fatalf("closes gateway=%d store=%d, want 1/1", gw.closes.Load(), store.closes.Load())
	}
}

type brokenCursor struct{ *memory.Store }

func (brokenCursor) LoadCursor(context.Context) (int64, error) { return 0, errors.New("corrupt") }

func TestStart_CursorLoadFailure(t *testing.T) {
	ctx := context.Background()
	st := brokenCursor{memory.New()}
	reg, _ := registry.Load(ctx, st, zap.NewNop())
	o, err := New(Deps{
		Gateway:  &fakeGateway{},
		Store:    st,
		Registry: reg,
		Resource: monitor.NewResource("site", "https://example.com"),
		Prober:   okProber{},
	}, fastOptions())
	if err != nil {
		t.Fatal(err)
	}
	err = o.Start(ctx)
	if !domain.IsStorage(err) {
		t.Fatalf("want storage error, got %v", err)
	}
	if err := o.Shutdown(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Shutdown before start: %v", err)
	}
}
