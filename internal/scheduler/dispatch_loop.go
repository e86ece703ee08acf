package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/readiness"
)

type Subscribers interface {
	ListSubscribed() []domain.Subscriber
}

type StatusView interface {
	IsUp() bool
	Report() string
}

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type DispatchConfig struct {
	UpInterval   time.Duration
	DownInterval time.Duration
	// IdleInterval is how often a closed gate is re-checked.
	IdleInterval time.Duration
	Concurrency  int
}

// DispatchLoop pages subscribers with the current status report. It reads
// the registry and never writes it.
type DispatchLoop struct {
	Logger      *zap.Logger
	Subscribers Subscribers
	Status      StatusView
	Gate        *readiness.Gate
	Sender      Sender
	cfg         DispatchConfig
}

func NewDispatchLoop(
	logger *zap.Logger,
	subs Subscribers,
	status StatusView,
	gate *readiness.Gate,
	sender Sender,
	cfg DispatchConfig,
) *DispatchLoop {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = time.Second
	}
	return &DispatchLoop{
		Logger:      logger,
		Subscribers: subs,
		Status:      status,
		Gate:        gate,
		Sender:      sender,
		cfg:         cfg,
	}
}

func (d *DispatchLoop) Run(ctx context.Context) {
	for {
		wait := d.cfg.IdleInterval
		if d.Gate.Open() {
			d.dispatchOnce(ctx)
			wait = d.nextInterval()
		}
		if !sleep(ctx, wait) {
			d.Logger.Info("dispatch_loop_stopped")
			return
		}
	}
}

// nextInterval is shorter while the resource is down so outages are
// reported more often.
func (d *DispatchLoop) nextInterval() time.Duration {
	if d.Status.IsUp() {
		return d.cfg.UpInterval
	}
	return d.cfg.DownInterval
}

// dispatchOnce sends the report to every subscribed chat. Sends are best
// effort: a failure is logged and the rest still go out.
func (d *DispatchLoop) dispatchOnce(ctx context.Context) (sent, failed int) {
	subs := d.Subscribers.ListSubscribed()
	if len(subs) == 0 {
		return 0, 0
	}
	text := d.Status.Report()

	var nSent, nFailed atomic.Int64
	sem := make(chan struct{}, d.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, s := range subs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return int(nSent.Load()), int(nFailed.Load())
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(s domain.Subscriber) {
			defer func() { <-sem }()
			defer wg.Done()

			if err := d.Sender.SendMessage(ctx, s.ChatID, text); err != nil {
				nFailed.Add(1)
				d.Logger.Warn("dispatch_send_error",
					zap.Int64("external_id", s.ExternalID),
					zap.Int64("chat_id", s.ChatID),
					zap.Error(err),
				)
				return
			}
			nSent.Add(1)
		}(s)
	}
	wg.Wait()

	d.Logger.Debug("dispatch_cycle",
		zap.Int("sent", int(nSent.Load())),
		zap.Int("failed", int(nFailed.Load())),
		zap.Bool("up", d.Status.IsUp()),
	)
	return int(nSent.Load()), int(nFailed.Load())
}
