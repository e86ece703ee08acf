package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/monitor"
	"github.com/hamed0406/uptimebot/internal/notify"
	"github.com/hamed0406/uptimebot/internal/probe"
	"github.com/hamed0406/uptimebot/internal/readiness"
)

type ProbeLoop struct {
	Logger   *zap.Logger
	Prober   probe.Prober
	Resource *monitor.Resource
	Gate     *readiness.Gate
	Interval time.Duration
	// Alerts, when set, is told about up/down flips (ops channel, not subscribers).
	Alerts notify.Notifier

	// in-flight alerts; Run waits for them before returning
	alerting sync.WaitGroup
}

func NewProbeLoop(
	logger *zap.Logger,
	prober probe.Prober,
	res *monitor.Resource,
	gate *readiness.Gate,
	interval time.Duration,
) *ProbeLoop {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProbeLoop{
		Logger:   logger,
		Prober:   prober,
		Resource: res,
		Gate:     gate,
		Interval: interval,
	}
}

// Run probes immediately, then on a fixed ticker. There is no backoff: the
// cadence stays the same through outages.
func (p *ProbeLoop) Run(ctx context.Context) {
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	defer p.alerting.Wait()

	// immediate pass
	p.probeOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("probe_loop_stopped")
			return
		case <-t.C:
			p.probeOnce(ctx)
		}
	}
}

func (p *ProbeLoop) probeOnce(ctx context.Context) {
	target := p.Resource.Target()
	code, err := p.Prober.Probe(ctx, target)
	if ctx.Err() != nil {
		// shutdown mid-probe; not an observation
		return
	}
	now := time.Now().UTC()

	var prev, next domain.ResourceStatus
	if err != nil {
		prev, next = p.Resource.Fail(err, now)
		p.Gate.SetProberActive(false)
		p.Logger.Warn("probe_failed", zap.String("url", target), zap.Error(err))
	} else {
		prev, next = p.Resource.Observe(code, now)
		p.Gate.SetProberActive(true)
		p.Logger.Debug("probe_checked",
			zap.String("url", target),
			zap.Int("status", code),
			zap.Bool("up", next.IsUp()),
		)
	}

	if !prev.CheckedAt.IsZero() && prev.IsUp() != next.IsUp() {
		p.Logger.Info("resource_state_changed",
			zap.String("url", target),
			zap.Bool("up", next.IsUp()),
			zap.Int("status", next.LastStatusCode),
		)
		if p.Alerts != nil {
			p.alerting.Add(1)
			go func() {
				defer p.alerting.Done()
				p.alert(ctx, next)
			}()
		}
	}
}

func (p *ProbeLoop) alert(ctx context.Context, s domain.ResourceStatus) {
	title := "🔴 Target DOWN"
	if s.IsUp() {
		title = "🟢 Target RECOVERED"
	}
	// Best-effort send
	if err := p.Alerts.Send(ctx, title, s.Report()); err != nil && ctx.Err() == nil {
		p.Logger.Warn("probe_alert_error", zap.Error(err))
	}
}
