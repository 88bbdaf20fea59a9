package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-io/token-transfers/internal/storage/postgres"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Batch - transfers found in the block range ending at Height
type Batch struct {
	Height    uint64
	Transfers []storage.Transfer
}

// Channel - persists batches in receiving order
type Channel struct {
	state   *storage.State
	storage postgres.Storage
	failed  *atomic.Bool
	ch      chan Batch
	wg      *sync.WaitGroup
}

// NewChannel -
func NewChannel(pg postgres.Storage, state *storage.State) *Channel {
	return &Channel{
		storage: pg,
		state:   state,
		failed:  new(atomic.Bool),
		ch:      make(chan Batch, 1024),
		wg:      new(sync.WaitGroup),
	}
}

// Add - returns false if context was cancelled before batch was queued
func (channel *Channel) Add(ctx context.Context, batch Batch) bool {
	select {
	case channel.ch <- batch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start -
func (channel *Channel) Start(ctx context.Context) {
	channel.wg.Add(1)
	go channel.listen(ctx)
}

// Failed - true after the first batch which could not be saved. Later batches are dropped
// and the indexer resumes from the last saved height on restart.
func (channel *Channel) Failed() bool {
	return channel.failed.Load()
}

func (channel *Channel) listen(ctx context.Context) {
	defer channel.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-channel.ch:
			if channel.failed.Load() {
				continue
			}

			saved, err := channel.save(ctx, batch)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				channel.failed.Store(true)
				log.Err(err).Uint64("height", batch.Height).Msg("saving transfers")
				continue
			}
			metricSavedTransfers.Add(float64(saved))

			log.Info().
				Uint64("height", batch.Height).
				Int("found", len(batch.Transfers)).
				Int("saved", saved).
				Msg("batch saved")
		}
	}
}

func (channel *Channel) save(ctx context.Context, batch Batch) (int, error) {
	tx, err := postgres.BeginTransaction(ctx, channel.storage.Transactable)
	if err != nil {
		return 0, err
	}
	defer tx.Close(ctx)

	hashes := make([]string, 0, len(batch.Transfers))
	for i := range batch.Transfers {
		hashes = append(hashes, batch.Transfers[i].TxHash)
	}
	known, err := tx.KnownTxHashes(ctx, hashes)
	if err != nil {
		return 0, tx.HandleError(ctx, errors.Wrap(err, "known hashes"))
	}

	transfers := filterNew(batch.Transfers, known)
	if err := tx.SaveTransfers(ctx, transfers...); err != nil {
		return 0, tx.HandleError(ctx, errors.Wrap(err, "insert transfers"))
	}

	state := *channel.state
	state.LastHeight = batch.Height
	state.LastTime = time.Now().UTC()
	if err := tx.UpdateState(ctx, &state); err != nil {
		return 0, tx.HandleError(ctx, errors.Wrap(err, "update state"))
	}

	if err := tx.Flush(ctx); err != nil {
		return 0, tx.HandleError(ctx, err)
	}
	*channel.state = state
	return len(transfers), nil
}

// filterNew - keeps the first transfer of every tx hash which is absent in known.
// Kept hashes are added to known.
func filterNew(transfers []storage.Transfer, known map[string]struct{}) []storage.Transfer {
	result := make([]storage.Transfer, 0, len(transfers))
	for i := range transfers {
		if _, ok := known[transfers[i].TxHash]; ok {
			continue
		}
		known[transfers[i].TxHash] = struct{}{}
		result = append(result, transfers[i])
	}
	return result
}

// Close -
func (channel *Channel) Close() error {
	channel.wg.Wait()

	close(channel.ch)
	return nil
}
