// Package orchestrator owns the shared state of a running bot and the
// lifecycle of its three loops.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimebot/internal/command"
	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/gateway"
	"github.com/hamed0406/uptimebot/internal/monitor"
	"github.com/hamed0406/uptimebot/internal/notify"
	"github.com/hamed0406/uptimebot/internal/probe"
	"github.com/hamed0406/uptimebot/internal/readiness"
	"github.com/hamed0406/uptimebot/internal/registry"
	"github.com/hamed0406/uptimebot/internal/repo"
	"github.com/hamed0406/uptimebot/internal/scheduler"
)

var (
	ErrAlreadyStarted = errors.New("orchestrator already started")
	ErrNotStarted     = errors.New("orchestrator not started")
)

type Deps struct {
	Logger   *zap.Logger
	Gateway  gateway.Gateway
	Store    repo.Store
	Registry *registry.Registry
	Resource *monitor.Resource
	Gate     *readiness.Gate
	Prober   probe.Prober
	// Alerts is optional.
	Alerts notify.Notifier
}

type Options struct {
	PingInterval       time.Duration
	UpdatesInterval    time.Duration
	DownInterval       time.Duration
	UpInterval         time.Duration
	IdleInterval       time.Duration
	MaxConcurrentSends int
}

type Orchestrator struct {
	d   Deps
	opt Options

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func New(d Deps, opt Options) (*Orchestrator, error) {
	var err error
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gateway == nil {
		err = multierr.Append(err, errors.New("gateway is required"))
	}
	if d.Store == nil {
		err = multierr.Append(err, errors.New("store is required"))
	}
	if d.Registry == nil {
		err = multierr.Append(err, errors.New("registry is required"))
	}
	if d.Resource == nil {
		err = multierr.Append(err, errors.New("resource is required"))
	}
	if d.Prober == nil {
		err = multierr.Append(err, errors.New("prober is required"))
	}
	if err != nil {
		return nil, err
	}
	if d.Gate == nil {
		d.Gate = readiness.New()
	}
	return &Orchestrator{d: d, opt: opt, done: make(chan struct{})}, nil
}

func (o *Orchestrator) Gate() *readiness.Gate { return o.d.Gate }

// Start loads the cursor and launches the loops. It returns once they are
// running; a cursor load failure is a *domain.StorageError and nothing starts.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return ErrAlreadyStarted
	}

	cursor, err := o.d.Store.LoadCursor(ctx)
	if err != nil {
		return &domain.StorageError{Op: "load cursor", Err: err}
	}

	log := o.d.Logger
	handler := command.NewHandler(
		command.NewInterpreter(o.d.Resource),
		o.d.Registry,
		o.d.Gateway,
		log.Named("command"),
	)

	probeLoop := scheduler.NewProbeLoop(log.Named("probe"), o.d.Prober, o.d.Resource, o.d.Gate, o.opt.PingInterval)
	probeLoop.Alerts = o.d.Alerts
	ingestLoop := scheduler.NewIngestLoop(log.Named("ingest"), o.d.Gateway, o.d.Store, handler, o.d.Gate, o.opt.UpdatesInterval, cursor)
	dispatchLoop := scheduler.NewDispatchLoop(log.Named("dispatch"), o.d.Registry, o.d.Resource, o.d.Gate, o.d.Gateway, scheduler.DispatchConfig{
		UpInterval:   o.opt.UpInterval,
		DownInterval: o.opt.DownInterval,
		IdleInterval: o.opt.IdleInterval,
		Concurrency:  o.opt.MaxConcurrentSends,
	})

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	for _, run := range []func(context.Context){probeLoop.Run, ingestLoop.Run, dispatchLoop.Run} {
		g.Go(func() error {
			run(gctx)
			return nil
		})
	}

	o.started = true
	o.cancel = cancel
	go func() {
		_ = g.Wait()
		close(o.done)
	}()

	log.Info("orchestrator_started",
		zap.String("target", o.d.Resource.Target()),
		zap.Int64("cursor", cursor),
		zap.Int("subscribers", len(o.d.Registry.ListSubscribed())),
	)
	return nil
}

// Done is closed when every loop has returned.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Shutdown cancels the loops, waits for them, then releases the gateway and
// the store. Calling it again returns the first result.
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	started, cancel := o.started, o.cancel
	o.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	cancel()
	<-o.done

	o.closeOnce.Do(func() {
		o.closeErr = multierr.Combine(o.d.Gateway.Close(), o.d.Store.Close())
		o.d.Logger.Info("orchestrator_stopped", zap.Error(o.closeErr))
	})
	return o.closeErr
}
