package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"indibox/logger"
	"indibox/repository"
	"indibox/storage"
)

const (
	CleanupBatchSize   = 50
	CleanupMaxAttempts = 5
)

// AssetCleanupWorker deletes stored objects that no game references anymore.
type AssetCleanupWorker struct {
	queue    repository.CleanupRepository
	store    storage.ObjectStore
	interval time.Duration
	clock    clockwork.Clock
	log      zerolog.Logger

	mu    sync.Mutex
	sched gocron.Scheduler
}

func NewAssetCleanupWorker(queue repository.CleanupRepository, store storage.ObjectStore, interval time.Duration) *AssetCleanupWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AssetCleanupWorker{
		queue:    queue,
		store:    store,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		log:      logger.With("asset-cleanup"),
	}
}

// Start schedules Sweep every interval until ctx is done or Stop is called.
// A sweep still running when the next one is due is skipped.
func (w *AssetCleanupWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(w.clock))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if _, _, err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error().Err(err).Msg("sweep failed")
			}
		}),
		gocron.WithName("asset-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule asset cleanup: %w", err)
	}

	w.mu.Lock()
	w.sched = sched
	w.mu.Unlock()
	sched.Start()
	w.log.Info().Dur("interval", w.interval).Msg("worker started")

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()
	return nil
}

func (w *AssetCleanupWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sched == nil {
		return nil
	}
	err := w.sched.Shutdown()
	w.sched = nil
	return err
}

// Sweep processes one batch of pending deletions. A missing object counts as deleted.
func (w *AssetCleanupWorker) Sweep(ctx context.Context) (done, failed int, err error) {
	pending, err := w.queue.Pending(ctx, CleanupBatchSize, CleanupMaxAttempts)
	if err != nil {
		return 0, 0, fmt.Errorf("load pending cleanups: %w", err)
	}

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return done, failed, err
		}
		delErr := w.store.Delete(ctx, item.Bucket, item.Path)
		if delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			failed++
			w.log.Warn().Err(delErr).Str("bucket", item.Bucket).Str("path", item.Path).Int("attempt", item.Attempts+1).Msg("delete failed")
			if err := w.queue.MarkFailed(ctx, item.ID, delErr.Error()); err != nil {
				return done, failed, fmt.Errorf("record cleanup failure: %w", err)
			}
			continue
		}
		if err := w.queue.MarkDone(ctx, item.ID, w.clock.Now()); err != nil {
			return done, failed, fmt.Errorf("mark cleanup done: %w", err)
		}
		done++
	}

	if done+failed > 0 {
		w.log.Info().Int("deleted", done).Int("failed", failed).Msg("sweep finished")
	}
	return done, failed, nil
}
