// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/uptimebot/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fail(err.Error())
	}
	ok("config valid")
	ok(fmt.Sprintf("monitoring %s (%s) every %s", cfg.MonitorURL, cfg.MonitorName, cfg.PingInterval))

	if cfg.DownInterval > cfg.UpInterval {
		warn("DOWN_INTERVAL_MS is longer than UP_INTERVAL_MS; outages will be reported less often than good news.")
	}
	if cfg.PingInterval < time.Second {
		warn("PING_INTERVAL_MS under one second will hammer the monitored site.")
	}

	switch cfg.StoreDriver {
	case "memory":
		warn("STORE_DRIVER=memory: subscribers and cursor are lost on restart.")
	case "file":
		ok("STORE_DRIVER=file USERS_DIR=" + cfg.UsersDir + " CURSOR_FILE=" + cfg.CursorFile)
	case "sqlite":
		ok("STORE_DRIVER=sqlite SQLITE_PATH=" + cfg.SQLitePath)
	case "postgres":
		ok("STORE_DRIVER=postgres DATABASE_URL present")
	}

	if cfg.Addr == "" {
		warn("ADDR is empty; ops API disabled.")
	} else {
		ok("ADDR=" + cfg.Addr)
		if len(cfg.AdminAPIKeys) == 0 {
			warn("ADMIN_API_KEYS is empty (admin routes will 401).")
		}
		if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
			warn("no API keys; /api/status is open to anyone who can reach ADDR.")
		}
		if len(cfg.AllowedOrigins) == 0 {
			warn("ALLOWED_ORIGINS empty; any origin may call the ops API from a browser.")
		} else {
			ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
		}
	}

	if cfg.SlackWebhookURL == "" {
		warn("SLACK_WEBHOOK_URL empty; up/down alerts go to the log only.")
	} else {
		ok("SLACK_WEBHOOK_URL present")
	}

	ok("preflight passed")
}
