package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/config"
	"github.com/hamed0406/uptimebot/internal/repo"
	"github.com/hamed0406/uptimebot/internal/repo/file"
	"github.com/hamed0406/uptimebot/internal/repo/memory"
	"github.com/hamed0406/uptimebot/internal/repo/postgres"
	"github.com/hamed0406/uptimebot/internal/repo/sqlite"
)

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("memory_store_in_use", zap.String("note", "subscribers and cursor are lost on restart"))
		return memory.New(), nil
	case "file", "":
		return file.New(cfg.UsersDir, cfg.CursorFile, log)
	case "sqlite":
		return sqlite.New(ctx, cfg.SQLitePath, log)
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
