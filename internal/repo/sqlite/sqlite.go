package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	tg_id             INTEGER PRIMARY KEY,
	first_name        TEXT NOT NULL DEFAULT '',
	last_name         TEXT NOT NULL DEFAULT '',
	username          TEXT NOT NULL DEFAULT '',
	current_chat_id   INTEGER NOT NULL,
	receiving_updates BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS bot_state (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	cursor INTEGER NOT NULL
);
`

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens (or creates) the database file and ensures the schema.
func New(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open %s: %w", path, err)
	}
	// one writer; avoids SQLITE_BUSY between the loops
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info("sqlite_store_ready", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ---- SubscriberStore ----

func (s *Store) List(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tg_id, first_name, last_name, username, current_chat_id, receiving_updates
		   FROM users
		  ORDER BY tg_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		var u domain.Subscriber
		if err := rows.Scan(&u.ExternalID, &u.FirstName, &u.LastName, &u.Username, &u.ChatID, &u.Subscribed); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) Save(ctx context.Context, u domain.Subscriber) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (tg_id, first_name, last_name, username, current_chat_id, receiving_updates)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tg_id) DO UPDATE SET
		   first_name=excluded.first_name,
		   last_name=excluded.last_name,
		   username=excluded.username,
		   current_chat_id=excluded.current_chat_id,
		   receiving_updates=excluded.receiving_updates`,
		u.ExternalID, u.FirstName, u.LastName, u.Username, u.ChatID, u.Subscribed)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ExternalID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, externalID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE tg_id = ?`, externalID); err != nil {
		return fmt.Errorf("delete user %d: %w", externalID, err)
	}
	return nil
}

// ---- CursorStore ----

func (s *Store) LoadCursor(ctx context.Context) (int64, error) {
	var c int64
	err := s.db.QueryRowContext(ctx, `SELECT cursor FROM bot_state WHERE id = 1`).Scan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return c, nil
}

func (s *Store) SaveCursor(ctx context.Context, offset int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_state (id, cursor) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET cursor=excluded.cursor`, offset)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
