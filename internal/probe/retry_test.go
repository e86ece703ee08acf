package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

type step struct {
	code int
	err  error
}

// fake prober you can control; i counts calls, past the last step it keeps
// failing to connect
type fakeProber struct {
	steps []step
	i     int
}

func (f *fakeProber) Probe(ctx context.Context, target string) (int, error) {
	n := f.i
	f.i++
	if n >= len(f.steps) {
		return 0, &ConnectError{Target: target, Err: errors.New("no more")}
	}
	return f.steps[n].code, f.steps[n].err
}

func TestRetryProber_SucceedsAfterRetry(t *testing.T) {
	f := &fakeProber{steps: []step{
		{err: &ConnectError{Target: "x", Err: errors.New("refused")}},
		{code: 200},
	}}
	rp := &RetryProber{Inner: f, Attempts: 3, Backoff: 10 * time.Millisecond}
	code, err := rp.Probe(context.Background(), "https://example.com")
	if err != nil || code != 200 {
		t.Fatalf("expected 200 after retry, got %d %v", code, err)
	}
	if f.i != 2 {
		t.Fatalf("want 2 attempts, got %d", f.i)
	}
}

func TestRetryProber_DoesNotRetryResponses(t *testing.T) {
	f := &fakeProber{steps: []step{{code: 503}, {code: 200}}}
	rp := &RetryProber{Inner: f, Attempts: 3}
	code, err := rp.Probe(context.Background(), "https://example.com")
	if err != nil || code != 503 {
		t.Fatalf("want 503 returned as-is, got %d %v", code, err)
	}
	if f.i != 1 {
		t.Fatalf("want a single attempt, got %d", f.i)
	}
}

func TestRetryProber_AllFail(t *testing.T) {
	f := &fakeProber{steps: []step{
		{err: &ConnectError{Target: "x", Err: errors.New("fail1")}},
		{err: &ConnectError{Target: "x", Err: errors.New("fail2")}},
	}}
	rp := &RetryProber{Inner: f, Attempts: 2}
	_, err := rp.Probe(context.Background(), "https://example.com")
	var ce *ConnectError
	if !errors.As(err, &ce) || ce.Err.Error() != "fail2" {
		t.Fatalf("want last ConnectError, got %v", err)
	}
}

func TestRetryProber_StopsOnCancel(t *testing.T) {
	f := &fakeProber{}
	rp := &RetryProber{Inner: f, Attempts: 5, Backoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rp.Probe(ctx, "https://example.com"); err == nil {
		t.Fatalf("want error")
	}
	if f.i != 1 {
		t.Fatalf("want 1 attempt before observing cancel, got %d", f.i)
	}
}

func TestRetryProber_ExhaustsAttempts(t *testing.T) {
	f := &fakeProber{}
	rp := &RetryProber{Inner: f, Attempts: 3}
	if _, err := rp.Probe(context.Background(), "https://example.com"); err == nil {
		t.Fatal("want error")
	}
	if f.i != 3 {
		t.Fatalf("want 3 attempts, got %d", f.i)
	}
}
