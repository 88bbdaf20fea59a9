package main

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dipdup-io/token-transfers/internal/caller"
	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-io/token-transfers/internal/types"
	"github.com/dipdup-io/workerpool"
	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	fillerBatchSize = 100
	maxRetryDelay   = 10 * time.Minute
)

// Filler - sets block time to transfers stored without it
type Filler struct {
	caller       caller.Caller
	storage      storage.ITransfer
	pool         *workerpool.Pool[storage.Transfer]
	cache        *ccache.Cache
	retries      *ccache.Cache
	queue        *types.Queue[int64]
	workersCount int
	delay        time.Duration
	wg           *sync.WaitGroup
}

// NewFiller -
func NewFiller(cfg FillerConfig, blockchain caller.Caller, transfers storage.ITransfer) Filler {
	var (
		workersCount = 10
		delay        = 5
	)

	if cfg.WorkersCount > 0 {
		workersCount = cfg.WorkersCount
	}
	if cfg.Delay > 0 {
		delay = cfg.Delay
	}

	f := Filler{
		caller:       blockchain,
		storage:      transfers,
		cache:        ccache.New(ccache.Configure().MaxSize(1000)),
		retries:      ccache.New(ccache.Configure().MaxSize(10000)),
		queue:        types.NewQueue[int64](),
		workersCount: workersCount,
		delay:        time.Duration(delay) * time.Second,
		wg:           new(sync.WaitGroup),
	}

	f.pool = workerpool.NewPool(f.worker, workersCount)
	return f
}

// Start -
func (f Filler) Start(ctx context.Context) {
	f.pool.Start(ctx)

	f.wg.Add(1)
	go f.work(ctx)
}

func (f Filler) work(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(time.Millisecond * 100)
	defer ticker.Stop()

	var cursor int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.pool.QueueSize() > f.workersCount {
				continue
			}
			tasks, next, err := f.pending(ctx, cursor)
			if err != nil {
				log.Err(err).Msg("receiving filler tasks")
				continue
			}

			for i := range tasks {
				f.pool.AddTask(tasks[i])
			}

			if len(tasks) == 0 && next == 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.delay):
				}
			}
			cursor = next
		}
	}
}

// pending - returns tasks after cursor which are neither in progress nor waiting for retry.
// Returned cursor is 0 when the end of table was reached.
func (f Filler) pending(ctx context.Context, cursor int64) ([]storage.Transfer, int64, error) {
	rows, err := f.storage.WithoutTimestamp(ctx, cursor, fillerBatchSize)
	if err != nil {
		return nil, cursor, err
	}

	var next int64
	if len(rows) == fillerBatchSize {
		next = rows[len(rows)-1].ID
	}

	tasks := make([]storage.Transfer, 0, len(rows))
	for i := range rows {
		if f.isDelayed(rows[i].ID) {
			continue
		}
		if !f.queue.Add(rows[i].ID) {
			continue
		}
		tasks = append(tasks, rows[i])
	}
	return tasks, next, nil
}

func retryKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (f Filler) isDelayed(id int64) bool {
	item := f.retries.Get(retryKey(id))
	return item != nil && !item.Expired()
}

// delayRetry - postpones next attempt doubling delay after each failure
func (f Filler) delayRetry(id int64) time.Duration {
	attempt := 1
	if item := f.retries.Get(retryKey(id)); item != nil {
		attempt = item.Value().(int) + 1
	}

	delay := f.delay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	f.retries.Set(retryKey(id), attempt, delay)
	return delay
}

// Close -
func (f Filler) Close() error {
	f.wg.Wait()

	if err := f.pool.Close(); err != nil {
		return err
	}

	f.cache.Stop()
	f.retries.Stop()
	return nil
}

func (f Filler) worker(ctx context.Context, task storage.Transfer) {
	defer f.queue.Delete(task.ID)

	ts, err := f.blockTime(ctx, uint64(task.BlockNumber))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			delay := f.delayRetry(task.ID)
			log.Err(err).
				Int64("id", task.ID).
				Int64("block", task.BlockNumber).
				Dur("retry_in", delay).
				Msg("receiving block time")
		}
		return
	}
	task.Timestamp = &ts

	if err := f.storage.Update(ctx, &task); err != nil {
		log.Err(err).Int64("id", task.ID).Dur("retry_in", f.delayRetry(task.ID)).Msg("saving transfer timestamp")
		return
	}
	f.retries.Delete(retryKey(task.ID))
	metricFilledTimestamps.Inc()

	log.Debug().
		Int64("id", task.ID).
		Int64("block", task.BlockNumber).
		Time("timestamp", ts).
		Msg("timestamp filled")
}

func (f Filler) blockTime(ctx context.Context, level uint64) (time.Time, error) {
	item, err := f.cache.Fetch(strconv.FormatUint(level, 10), time.Hour, func() (interface{}, error) {
		return f.caller.BlockTime(ctx, level)
	})
	if err != nil {
		return time.Time{}, err
	}
	return item.Value().(time.Time), nil
}
