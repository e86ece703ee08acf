package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
  tg_id             BIGINT PRIMARY KEY,
  first_name        TEXT NOT NULL DEFAULT '',
  last_name         TEXT NOT NULL DEFAULT '',
  username          TEXT NOT NULL DEFAULT '',
  current_chat_id   BIGINT NOT NULL,
  receiving_updates BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS bot_state (
  id     SMALLINT PRIMARY KEY CHECK (id = 1),
  cursor BIGINT NOT NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info("postgres_store_ready")
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ---- SubscriberStore ----

func (s *Store) List(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.pool.Query(ctx,
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
	const q = `
		INSERT INTO users (tg_id, first_name, last_name, username, current_chat_id, receiving_updates)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (tg_id)
		DO UPDATE SET first_name=EXCLUDED.first_name,
		              last_name=EXCLUDED.last_name,
		              username=EXCLUDED.username,
		              current_chat_id=EXCLUDED.current_chat_id,
		              receiving_updates=EXCLUDED.receiving_updates
	`
	if _, err := s.pool.Exec(ctx, q, u.ExternalID, u.FirstName, u.LastName, u.Username, u.ChatID, u.Subscribed); err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ExternalID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, externalID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE tg_id=$1`, externalID); err != nil {
		return fmt.Errorf("delete user %d: %w", externalID, err)
	}
	return nil
}

// ---- CursorStore ----

func (s *Store) LoadCursor(ctx context.Context) (int64, error) {
	var c int64
	err := s.pool.QueryRow(ctx, `SELECT cursor FROM bot_state WHERE id=1`).Scan(&c)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return c, nil
}

func (s *Store) SaveCursor(ctx context.Context, offset int64) error {
	const q = `
		INSERT INTO bot_state (id, cursor) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET cursor=EXCLUDED.cursor
	`
	if _, err := s.pool.Exec(ctx, q, offset); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
