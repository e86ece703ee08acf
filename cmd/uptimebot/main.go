package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/config"
	"github.com/hamed0406/uptimebot/internal/gateway/telegram"
	"github.com/hamed0406/uptimebot/internal/httpapi"
	apimw "github.com/hamed0406/uptimebot/internal/httpapi/middleware"
	"github.com/hamed0406/uptimebot/internal/logging"
	"github.com/hamed0406/uptimebot/internal/monitor"
	"github.com/hamed0406/uptimebot/internal/notify"
	"github.com/hamed0406/uptimebot/internal/orchestrator"
	"github.com/hamed0406/uptimebot/internal/probe"
	"github.com/hamed0406/uptimebot/internal/readiness"
	"github.com/hamed0406/uptimebot/internal/registry"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		logger.Fatal("store_open_error", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	reg, err := registry.Load(ctx, store, logger.Named("registry"))
	if err != nil {
		_ = store.Close()
		logger.Fatal("registry_load_error", zap.Error(err))
	}

	tg, err := telegram.New(telegram.Config{
		APIBase:        cfg.TelegramAPIBase,
		Token:          cfg.BotToken,
		Timeout:        cfg.HTTPTimeout,
		LongPoll:       cfg.LongPoll,
		SendRatePerSec: cfg.SendRatePerSec,
	}, logger.Named("telegram"))
	if err != nil {
		_ = store.Close()
		logger.Fatal("telegram_init_error", zap.Error(err))
	}

	prober := &probe.RetryProber{
		Inner:    probe.NewHTTPProber(cfg.HTTPTimeout),
		Attempts: cfg.RetryAttempts,
		Backoff:  cfg.RetryBackoff,
	}

	alerts := notify.Multi{notify.Log{L: logger.Named("alerts")}}
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		alerts = append(alerts, s)
	}

	res := monitor.NewResource(cfg.MonitorName, cfg.MonitorURL)
	gate := readiness.New()

	orch, err := orchestrator.New(orchestrator.Deps{
		Logger:   logger,
		Gateway:  tg,
		Store:    store,
		Registry: reg,
		Resource: res,
		Gate:     gate,
		Prober:   prober,
		Alerts:   alerts,
	}, orchestrator.Options{
		PingInterval:       cfg.PingInterval,
		UpdatesInterval:    cfg.UpdatesInterval,
		DownInterval:       cfg.DownInterval,
		UpInterval:         cfg.UpInterval,
		IdleInterval:       cfg.IdleInterval,
		MaxConcurrentSends: cfg.MaxConcurrentSends,
	})
	if err != nil {
		logger.Fatal("orchestrator_init_error", zap.Error(err))
	}
	if err := orch.Start(ctx); err != nil {
		_ = store.Close()
		logger.Fatal("orchestrator_start_error", zap.Error(err))
	}

	var srv *http.Server
	if cfg.Addr != "" {
		api := httpapi.NewServer(logger.Named("api"), res, gate, reg)
		keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
		srv = &http.Server{
			Addr:              cfg.Addr,
			Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("api_listen", zap.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api_listen_error", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown_requested")

	if srv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shCtx)
		cancel()
	}
	if err := orch.Shutdown(); err != nil {
		logger.Warn("shutdown_error", zap.Error(err))
	}
}
