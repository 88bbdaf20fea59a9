package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dipdup-io/token-transfers/internal/api"
	"github.com/dipdup-io/token-transfers/internal/caller"
	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-io/token-transfers/internal/storage/postgres"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// IndexerName - name of indexer state row
const IndexerName = "transfers_indexer"

// ErrChannelFailed - batch could not be saved and indexing was stopped
var ErrChannelFailed = errors.New("storage channel failed")

// Indexer - receives transfer logs of configured contracts block range by block range
type Indexer struct {
	caller     caller.Caller
	storage    postgres.Storage
	state      *storage.State
	channel    *Channel
	filler     Filler
	contracts  []common.Address
	decimals   map[common.Address]uint8
	startLevel uint64
	batchSize  uint64
	interval   time.Duration
	next       uint64

	done chan struct{}
	wg   *sync.WaitGroup
}

// NewIndexer -
func NewIndexer(cfg Config, pg postgres.Storage, blockchain caller.Caller) (*Indexer, error) {
	if len(cfg.Indexer.Contracts) == 0 {
		return nil, errors.New("empty contracts list")
	}

	indexer := &Indexer{
		caller:     blockchain,
		storage:    pg,
		state:      new(storage.State),
		contracts:  make([]common.Address, 0, len(cfg.Indexer.Contracts)),
		decimals:   make(map[common.Address]uint8),
		startLevel: cfg.Indexer.StartLevel,
		batchSize:  1000,
		interval:   5 * time.Second,
		done:       make(chan struct{}),
		wg:         new(sync.WaitGroup),
	}
	for _, contract := range cfg.Indexer.Contracts {
		if !common.IsHexAddress(contract) {
			return nil, errors.Errorf("invalid contract address: %s", contract)
		}
		indexer.contracts = append(indexer.contracts, common.HexToAddress(contract))
	}
	if cfg.Indexer.BatchSize > 0 {
		indexer.batchSize = cfg.Indexer.BatchSize
	}
	if cfg.Indexer.PollInterval > 0 {
		indexer.interval = time.Duration(cfg.Indexer.PollInterval) * time.Second
	}

	indexer.channel = NewChannel(pg, indexer.state)
	indexer.filler = NewFiller(cfg.Filler, blockchain, pg.Transfer)
	return indexer, nil
}

// Start -
func (indexer *Indexer) Start(ctx context.Context) error {
	if err := indexer.init(ctx); err != nil {
		return errors.Wrap(err, "state initialization")
	}
	indexer.readDecimals(ctx)

	indexer.channel.Start(ctx)
	indexer.filler.Start(ctx)

	indexer.wg.Add(1)
	go indexer.listen(ctx)
	return nil
}

func (indexer *Indexer) init(ctx context.Context) error {
	state, err := indexer.storage.State.ByName(ctx, IndexerName)
	switch {
	case err == nil:
		*indexer.state = state
		indexer.next = state.LastHeight + 1
	case indexer.storage.State.IsNoRows(err):
		indexer.state.Name = IndexerName
		if indexer.startLevel > 0 {
			indexer.state.LastHeight = indexer.startLevel - 1
		}
		if err := indexer.storage.State.Save(ctx, indexer.state); err != nil {
			return err
		}
		indexer.next = indexer.startLevel
	default:
		return err
	}

	log.Info().Uint64("level", indexer.next).Msg("indexing starts")
	return nil
}

func (indexer *Indexer) readDecimals(ctx context.Context) {
	for _, contract := range indexer.contracts {
		value, err := indexer.caller.Decimals(ctx, contract)
		if err != nil {
			log.Warn().Err(err).Str("contract", contract.Hex()).Msg("receiving decimals")
			continue
		}
		indexer.decimals[contract] = value
	}
}

// Done - closed when indexing loop exits
func (indexer *Indexer) Done() <-chan struct{} {
	return indexer.done
}

// Err - reason of indexing loop exit, nil on shutdown
func (indexer *Indexer) Err() error {
	if indexer.channel.Failed() {
		return ErrChannelFailed
	}
	return nil
}

func (indexer *Indexer) listen(ctx context.Context) {
	defer indexer.wg.Done()
	defer close(indexer.done)

	if err := indexer.sync(ctx); err != nil {
		log.Err(err).Msg("sync")
	}

	ticker := time.NewTicker(indexer.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("close listen thread")
			return
		case <-ticker.C:
			if indexer.channel.Failed() {
				log.Error().Msg("storage channel is stopped, restart is required")
				return
			}
			if err := indexer.sync(ctx); err != nil {
				log.Err(err).Msg("sync")
			}
		}
	}
}

// sync - walks from the next unindexed block up to head
func (indexer *Indexer) sync(ctx context.Context) error {
	head, err := indexer.caller.Head(ctx)
	if err != nil {
		return errors.Wrap(err, "receiving head")
	}

	for indexer.next <= head {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		to := indexer.next + indexer.batchSize - 1
		if to > head {
			to = head
		}

		logs, err := indexer.caller.TransferLogs(ctx, indexer.contracts, indexer.next, to)
		if err != nil {
			return errors.Wrapf(err, "receiving logs in [%d, %d]", indexer.next, to)
		}

		batch := Batch{
			Height:    to,
			Transfers: make([]storage.Transfer, 0, len(logs)),
		}
		for i := range logs {
			transfer, err := caller.ParseTransfer(logs[i])
			if err != nil {
				log.Warn().Err(err).
					Str("tx", logs[i].TxHash.Hex()).
					Uint("index", logs[i].Index).
					Msg("skip log")
				continue
			}
			indexer.logTransfer(logs[i].Address, transfer)
			batch.Transfers = append(batch.Transfers, transfer)
		}

		if !indexer.channel.Add(ctx, batch) {
			return nil
		}
		indexer.next = to + 1
		metricIndexerLevel.Set(float64(to))
	}
	return nil
}

func (indexer *Indexer) logTransfer(contract common.Address, transfer storage.Transfer) {
	e := log.Debug()
	if !e.Enabled() {
		return
	}
	amount := transfer.Amount
	if d, ok := indexer.decimals[contract]; ok {
		amount = amountOf(amount, d)
	}
	e.Str("contract", strings.ToLower(contract.Hex())).
		Str("from", transfer.FromAddress).
		Str("to", transfer.ToAddress).
		Str("amount", amount.String()).
		Str("tx", transfer.TxHash).
		Msg("transfer")
}

// Close - gracefully stops module
func (indexer *Indexer) Close() error {
	indexer.wg.Wait()

	if err := indexer.filler.Close(); err != nil {
		return err
	}

	if err := indexer.channel.Close(); err != nil {
		return err
	}

	return nil
}

func runIndexer(ctx context.Context, cfg Config) error {
	ds, ok := cfg.DataSources[cfg.Indexer.Datasource]
	if !ok {
		return errors.Errorf("unknown datasource: %s", cfg.Indexer.Datasource)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pg, err := postgres.Create(ctx, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "database creation")
	}

	node, err := caller.NewNodeRpcCaller(ctx, ds)
	if err != nil {
		_ = pg.Close()
		return errors.Wrap(err, "node connection")
	}

	indexer, err := NewIndexer(cfg, pg, node)
	if err != nil {
		_ = node.Close()
		_ = pg.Close()
		return err
	}

	if cfg.Metrics.Bind != "" {
		url, stop, err := api.StartMetricsServer(cfg.Metrics.Bind)
		if err != nil {
			_ = node.Close()
			_ = pg.Close()
			return err
		}
		defer stop()
		log.Info().Str("url", url).Msg("metrics server started")
	}

	if err := indexer.Start(ctx); err != nil {
		_ = node.Close()
		_ = pg.Close()
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
	case <-indexer.Done():
	}
	cancel()

	if err := indexer.Close(); err != nil {
		log.Err(err).Msg("closing indexer")
	}
	if err := node.Close(); err != nil {
		log.Err(err).Msg("closing node connection")
	}
	if err := pg.Close(); err != nil {
		log.Err(err).Msg("closing database connection")
	}
	return indexer.Err()
}

// amountOf - human readable amount of token with known decimals
func amountOf(value decimal.Decimal, decimals uint8) decimal.Decimal {
	return value.Shift(-int32(decimals))
}
