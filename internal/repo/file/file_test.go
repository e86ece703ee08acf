package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "users"), filepath.Join(dir, "state", "current_update_id.txt"), zap.NewNop())
	require.NoError(t, err)
	return s, dir
}

func TestFileStore_SaveListDelete(t *testing.T) {
	ctx := context.Background()
	s, dir := newStore(t)

	sub := domain.Subscriber{ExternalID: 42, ChatID: 4200, FirstName: "Ada", Username: "ada"}
	require.NoError(t, s.Save(ctx, sub))
	require.FileExists(t, filepath.Join(dir, "users", "42.json"))

	sub.Subscribed = true
	require.NoError(t, s.Save(ctx, sub))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, sub, all[0])

	require.NoError(t, s.Delete(ctx, 42))
	require.NoError(t, s.Delete(ctx, 42), "second delete is a no-op")

	all, err = s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestFileStore_ListSkipsCorruptAndForeignFiles(t *testing.T) {
	ctx := context.Background()
	s, dir := newStore(t)

	require.NoError(t, s.Save(ctx, domain.Subscriber{ExternalID: 1, ChatID: 1}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "2.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "README"), []byte("x"), 0o644))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.EqualValues(t, 1, all[0].ExternalID)
}

func TestFileStore_ReadsLegacyRecord(t *testing.T) {
	ctx := context.Background()
	s, dir := newStore(t)

	legacy := `{
    "tg_id": 7,
    "first_name": "Ivan",
    "last_name": "",
    "username": "ivan",
    "current_chat_id": 700,
    "receiving_updates": true
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "7.json"), []byte(legacy), 0o644))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Subscriber{{
		ExternalID: 7, ChatID: 700, FirstName: "Ivan", Username: "ivan", Subscribed: true,
	}}, all)
}

func TestFileStore_Cursor(t *testing.T) {
	ctx := context.Background()
	s, dir := newStore(t)

	c, err := s.LoadCursor(ctx)
	require.NoError(t, err)
	require.Zero(t, c)

	require.NoError(t, s.SaveCursor(ctx, 17))
	c, err = s.LoadCursor(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 17, c)

	// a hand-edited file with a trailing newline still parses
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state", "current_update_id.txt"), []byte("23\n"), 0o644))
	c, err = s.LoadCursor(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 23, c)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "state", "current_update_id.txt"), []byte("abc"), 0o644))
	_, err = s.LoadCursor(ctx)
	require.Error(t, err)
}
