package monitor

import (
	"sync/atomic"
	"time"

	"github.com/hamed0406/uptimebot/internal/domain"
)

// Resource holds the single ResourceStatus of the process. Writers are
// expected to be the probe loop only; readers get immutable snapshots.
type Resource struct {
	cur atomic.Pointer[domain.ResourceStatus]
}

func NewResource(name, target string) *Resource {
	r := &Resource{}
	r.cur.Store(&domain.ResourceStatus{
		Name:           name,
		Target:         target,
		LastStatusCode: domain.StatusUnknown,
	})
	return r
}

func (r *Resource) Snapshot() domain.ResourceStatus { return *r.cur.Load() }

func (r *Resource) Target() string { return r.cur.Load().Target }

func (r *Resource) IsUp() bool { return r.cur.Load().IsUp() }

func (r *Resource) Report() string { return r.cur.Load().Report() }

// Observe records a response code and clears any previous error. It returns
// the previous and new snapshots so callers can detect up/down flips.
func (r *Resource) Observe(code int, at time.Time) (prev, next domain.ResourceStatus) {
	p := r.cur.Load()
	n := *p
	n.LastStatusCode = code
	n.LastError = ""
	n.CheckedAt = at
	r.cur.Store(&n)
	return *p, n
}

// Fail records a probe that never got a response. The code goes back to
// unknown so IsUp is false until the next response.
func (r *Resource) Fail(err error, at time.Time) (prev, next domain.ResourceStatus) {
	p := r.cur.Load()
	n := *p
	n.LastStatusCode = domain.StatusUnknown
	n.LastError = err.Error()
	n.CheckedAt = at
	r.cur.Store(&n)
	return *p, n
}
