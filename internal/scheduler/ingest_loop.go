package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/gateway"
	"github.com/hamed0406/uptimebot/internal/readiness"
	"github.com/hamed0406/uptimebot/internal/repo"
)

type Fetcher interface {
	FetchUpdates(ctx context.Context, offset int64) ([]gateway.Update, error)
}

type UpdateHandler interface {
	Handle(ctx context.Context, u gateway.Update) error
}

type IngestLoop struct {
	Logger   *zap.Logger
	Fetcher  Fetcher
	Cursors  repo.CursorStore
	Handler  UpdateHandler
	Gate     *readiness.Gate
	Interval time.Duration

	// cursor is only touched by the Run goroutine.
	cursor int64
}

// NewIngestLoop starts reading after cursor, the value loaded from the
// cursor store at startup.
func NewIngestLoop(
	logger *zap.Logger,
	fetcher Fetcher,
	cursors repo.CursorStore,
	handler UpdateHandler,
	gate *readiness.Gate,
	interval time.Duration,
	cursor int64,
) *IngestLoop {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &IngestLoop{
		Logger:   logger,
		Fetcher:  fetcher,
		Cursors:  cursors,
		Handler:  handler,
		Gate:     gate,
		Interval: interval,
		cursor:   cursor,
	}
}

func (l *IngestLoop) Run(ctx context.Context) {
	for {
		_ = l.pollOnce(ctx)
		if !sleep(ctx, l.Interval) {
			l.Logger.Info("ingest_loop_stopped", zap.Int64("cursor", l.cursor))
			return
		}
	}
}

// pollOnce fetches one batch. The cursor is persisted before the batch is
// handled, so a crash while handling loses those updates instead of
// replaying them. If persisting fails the batch is left for the next fetch.
func (l *IngestLoop) pollOnce(ctx context.Context) error {
	ups, err := l.Fetcher.FetchUpdates(ctx, l.cursor)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.Logger.Warn("ingest_fetch_error", zap.Int64("cursor", l.cursor), zap.Error(err))
		return err
	}

	// Latches; later fetch errors do not clear it.
	if !l.Gate.GatewayActive() {
		l.Logger.Info("gateway_active")
	}
	l.Gate.MarkGatewayActive()

	fresh := ups[:0:0]
	for _, u := range ups {
		if u.ID > l.cursor {
			fresh = append(fresh, u)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	next := gateway.MaxID(fresh)
	if err := l.Cursors.SaveCursor(ctx, next); err != nil {
		se := &domain.StorageError{Op: "save cursor", Err: err}
		l.Logger.Error("ingest_cursor_save_error",
			zap.Int64("cursor", l.cursor),
			zap.Int64("next", next),
			zap.Error(se),
		)
		return se
	}
	l.cursor = next

	l.handleBatch(ctx, fresh)
	return nil
}

// handleBatch handles updates from different senders concurrently and waits
// for all of them. Updates from one sender run in update id order so the
// last command in the batch is the one that sticks. An error or panic in one
// update is logged and does not affect the rest.
func (l *IngestLoop) handleBatch(ctx context.Context, ups []gateway.Update) {
	var wg sync.WaitGroup
	for _, group := range groupBySender(ups) {
		wg.Add(1)
		go func(group []gateway.Update) {
			defer wg.Done()
			for _, u := range group {
				l.handleOne(ctx, u)
			}
		}(group)
	}
	wg.Wait()
}

func (l *IngestLoop) handleOne(ctx context.Context, u gateway.Update) {
	defer func() {
		if r := recover(); r != nil {
			l.Logger.Error("ingest_handler_panic",
				zap.Int64("update_id", u.ID),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	err := l.Handler.Handle(ctx, u)
	switch {
	case err == nil:
	case domain.IsMalformed(err):
		l.Logger.Warn("ingest_malformed_update", zap.Int64("update_id", u.ID), zap.Error(err))
	case domain.IsStorage(err):
		l.Logger.Error("ingest_storage_error", zap.Int64("update_id", u.ID), zap.Error(err))
	default:
		l.Logger.Warn("ingest_handle_error", zap.Int64("update_id", u.ID), zap.Error(err))
	}
}

// groupBySender splits a batch into per-sender runs ordered by update id.
// Updates without a sender each get a group of their own.
func groupBySender(ups []gateway.Update) [][]gateway.Update {
	sorted := append([]gateway.Update(nil), ups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var groups [][]gateway.Update
	bySender := make(map[int64]int)
	for _, u := range sorted {
		if u.Message == nil || u.Message.From == nil {
			groups = append(groups, []gateway.Update{u})
			continue
		}
		from := u.Message.From.ID
		i, ok := bySender[from]
		if !ok {
			i = len(groups)
			bySender[from] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], u)
	}
	return groups
}

func (l *IngestLoop) Cursor() int64 { return l.cursor }
