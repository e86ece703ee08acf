// Package file stores each subscriber as <tg_id>.json under a directory and
// the update cursor as a plain integer in its own file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/repo"
)

var _ repo.Store = (*Store)(nil)

type Store struct {
	dir        string
	cursorPath string
	log        *zap.Logger
}

// New creates usersDir and the cursor's parent directory when missing.
func New(usersDir, cursorPath string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(usersDir, 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cursorPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cursor dir: %w", err)
	}
	return &Store{dir: usersDir, cursorPath: cursorPath, log: log}, nil
}

func (s *Store) path(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+".json")
}

func (s *Store) List(ctx context.Context) ([]domain.Subscriber, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read users dir: %w", err)
	}
	out := make([]domain.Subscriber, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var sub domain.Subscriber
		if err := json.Unmarshal(b, &sub); err != nil {
			// A half-written record from a crash should not take the bot down.
			s.log.Warn("file_store_skip_record", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, sub domain.Subscriber) error {
	b, err := json.MarshalIndent(sub, "", "    ")
	if err != nil {
		return fmt.Errorf("encode subscriber %d: %w", sub.ExternalID, err)
	}
	return writeAtomic(s.path(sub.ExternalID), b)
}

func (s *Store) Delete(ctx context.Context, externalID int64) error {
	err := os.Remove(s.path(externalID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete subscriber %d: %w", externalID, err)
	}
	return nil
}

func (s *Store) LoadCursor(ctx context.Context) (int64, error) {
	b, err := os.ReadFile(s.cursorPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor %q: %w", raw, err)
	}
	return n, nil
}

func (s *Store) SaveCursor(ctx context.Context, offset int64) error {
	return writeAtomic(s.cursorPath, []byte(strconv.FormatInt(offset, 10)))
}

func (s *Store) Close() error { return nil }

// writeAtomic replaces path via a temp file in the same directory so a reader
// never sees a truncated record.
func writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
