package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	apimw "github.com/hamed0406/uptimebot/internal/httpapi/middleware"
	"github.com/hamed0406/uptimebot/internal/monitor"
	"github.com/hamed0406/uptimebot/internal/readiness"
	"github.com/hamed0406/uptimebot/internal/registry"
	"github.com/hamed0406/uptimebot/internal/repo/memory"
)

// ---- test helpers ----

type fixture struct {
	ts   *httptest.Server
	res  *monitor.Resource
	gate *readiness.Gate
	reg  *registry.Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	ctx := context.Background()

	reg, err := registry.Load(ctx, memory.New(), log)
	if err != nil {
		t.Fatal(err)
	}
	_ = reg.Upsert(ctx, domain.Subscriber{ExternalID: 42, ChatID: 4200, Username: "ann", Subscribed: true})
	_ = reg.Upsert(ctx, domain.Subscriber{ExternalID: 7, ChatID: 700, Subscribed: false})

	res := monitor.NewResource("site", "https://example.com")
	gate := readiness.New()
	srv := NewServer(log, res, gate, reg)

	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}
	// very high rate limits to avoid flakiness in tests
	ts := httptest.NewServer(srv.Router(keys, nil, 10_000, 10_000, 10_000, 10_000))
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, res: res, gate: gate, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, f.ts.URL+path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestReadyz_FollowsGate(t *testing.T) {
	f := setup(t)

	if resp := f.do(t, http.MethodGet, "/readyz", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("closed gate: got %d", resp.StatusCode)
	}

	f.gate.SetProberActive(true)
	f.gate.MarkGatewayActive()
	resp := f.do(t, http.MethodGet, "/readyz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open gate: got %d", resp.StatusCode)
	}
	var snap readiness.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil || !snap.Open {
		t.Fatalf("snapshot = %+v err=%v", snap, err)
	}
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	if resp := f.do(t, http.MethodGet, "/healthz", ""); resp.StatusCode != 200 {
		t.Fatalf("got %d", resp.StatusCode)
	}
}

func TestStatus_RequiresKey(t *testing.T) {
	f := setup(t)
	f.res.Observe(202, time.Now())

	if resp := f.do(t, http.MethodGet, "/api/status", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: got %d", resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/api/status", "pub_test")
	if resp.StatusCode != 200 {
		t.Fatalf("pub key: got %d", resp.StatusCode)
	}
	var body struct {
		Up     bool   `json:"up"`
		Code   int    `json:"last_status_code"`
		Report string `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Up || body.Code != 202 || body.Report != "site: status code 202 for https://example.com" {
		t.Fatalf("body = %+v", body)
	}
}

func TestSubscribers_AdminOnly(t *testing.T) {
	f := setup(t)

	if resp := f.do(t, http.MethodGet, "/api/subscribers", "pub_test"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("public key: got %d", resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/api/subscribers", "adm_test")
	if resp.StatusCode != 200 {
		t.Fatalf("admin key: got %d", resp.StatusCode)
	}
	var subs []domain.Subscriber
	if err := json.NewDecoder(resp.Body).Decode(&subs); err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 || subs[0].ExternalID != 7 || subs[1].ExternalID != 42 {
		t.Fatalf("subs = %+v", subs)
	}
}

func TestDeleteSubscriber(t *testing.T) {
	f := setup(t)

	if resp := f.do(t, http.MethodDelete, "/api/subscribers/abc", "adm_test"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodDelete, "/api/subscribers/999", "adm_test"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id: got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodDelete, "/api/subscribers/42", "adm_test"); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: got %d", resp.StatusCode)
	}
	if _, ok := f.reg.Find(42); ok {
		t.Fatal("subscriber 42 still in registry")
	}
	if got := f.reg.ListSubscribed(); len(got) != 0 {
		t.Fatalf("nobody should be subscribed, got %+v", got)
	}
}
