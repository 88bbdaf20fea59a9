package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(c *testCaller, next, batchSize uint64) *Indexer {
	return &Indexer{
		caller: c,
		channel: newTestChannel(64),
		contracts: []common.Address{testContract},
		decimals:  map[common.Address]uint8{testContract: 18},
		batchSize: batchSize,
		interval:  time.Second,
		next:      next,
		done:      make(chan struct{}),
		wg:        new(sync.WaitGroup),
	}
}

func drain(ch chan Batch) []Batch {
	batches := make([]Batch, 0)
	for {
		select {
		case b := <-ch:
			batches = append(batches, b)
		default:
			return batches
		}
	}
}

func TestIndexer_sync(t *testing.T) {
	c := &testCaller{
		head: 27,
		logs: []types.Log{
			newTransferLog(5, "0x01", "0xAA", "0xBB", 100),
			newTransferLog(16, "0x02", "0xBB", "0xCC", 7),
			newTransferLog(27, "0x03", "0xCC", "0xAA", 1),
		},
	}
	indexer := newTestIndexer(c, 5, 10)

	require.NoError(t, indexer.sync(context.Background()))
	require.Equal(t, [][2]uint64{{5, 14}, {15, 24}, {25, 27}}, c.ranges)
	require.EqualValues(t, 28, indexer.next)

	batches := drain(indexer.channel.ch)
	require.Len(t, batches, 3)
	require.EqualValues(t, 14, batches[0].Height)
	require.EqualValues(t, 24, batches[1].Height)
	require.EqualValues(t, 27, batches[2].Height)

	require.Len(t, batches[0].Transfers, 1)
	transfer := batches[0].Transfers[0]
	require.Equal(t, "0x00000000000000000000000000000000000000aa", transfer.FromAddress)
	require.Equal(t, "0x00000000000000000000000000000000000000bb", transfer.ToAddress)
	require.Equal(t, "100", transfer.Amount.String())
	require.EqualValues(t, 5, transfer.BlockNumber)
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", transfer.TxHash)
	require.Nil(t, transfer.Timestamp)

	// nothing new on the next tick
	require.NoError(t, indexer.sync(context.Background()))
	require.Len(t, c.ranges, 3)
	require.Empty(t, drain(indexer.channel.ch))
}

func TestIndexer_syncSkipsForeignLogs(t *testing.T) {
	erc721 := newTransferLog(3, "0x04", "0xAA", "0xBB", 0)
	erc721.Topics = append(erc721.Topics, common.BigToHash(common.Big1))

	removed := newTransferLog(3, "0x05", "0xAA", "0xBB", 10)
	removed.Removed = true

	c := &testCaller{
		head: 3,
		logs: []types.Log{erc721, removed, newTransferLog(3, "0x06", "0xAA", "0xBB", 11)},
	}
	indexer := newTestIndexer(c, 0, 100)

	require.NoError(t, indexer.sync(context.Background()))

	batches := drain(indexer.channel.ch)
	require.Len(t, batches, 1)
	require.EqualValues(t, 3, batches[0].Height)
	require.Len(t, batches[0].Transfers, 1)
	require.Equal(t, "11", batches[0].Transfers[0].Amount.String())
}

func TestIndexer_syncNodeError(t *testing.T) {
	c := &testCaller{head: 50, failRanges: true}
	indexer := newTestIndexer(c, 10, 10)

	err := indexer.sync(context.Background())
	require.ErrorIs(t, err, errNode)
	require.EqualValues(t, 10, indexer.next)
	require.Empty(t, drain(indexer.channel.ch))
}

func TestIndexer_syncStopsOnCancelWhenChannelIsFull(t *testing.T) {
	c := &testCaller{
		head: 30,
		logs: []types.Log{newTransferLog(12, "0x01", "0xAA", "0xBB", 1)},
	}
	indexer := newTestIndexer(c, 0, 10)
	indexer.channel.ch = make(chan Batch, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- indexer.sync(ctx)
	}()

	// first window fits into buffer, second one waits for listener
	require.Eventually(t, func() bool {
		return len(indexer.channel.ch) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sync is blocked after cancel")
	}
	require.EqualValues(t, 10, indexer.next, "unsent window is requested again on restart")
}

func TestIndexer_Err(t *testing.T) {
	indexer := newTestIndexer(&testCaller{}, 0, 10)
	require.NoError(t, indexer.Err())

	indexer.channel.failed.Store(true)
	require.ErrorIs(t, indexer.Err(), ErrChannelFailed)
}

func TestIndexer_readDecimals(t *testing.T) {
	unknown := common.HexToAddress("0x1")
	c := &testCaller{decimals: map[common.Address]uint8{testContract: 6}}
	indexer := newTestIndexer(c, 0, 10)
	indexer.contracts = append(indexer.contracts, unknown)
	indexer.decimals = make(map[common.Address]uint8)

	indexer.readDecimals(context.Background())
	require.Equal(t, map[common.Address]uint8{testContract: 6}, indexer.decimals)
}

func Test_amountOf(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals uint8
		want     string
	}{
		{name: "18 decimals", value: "1500000000000000000", decimals: 18, want: "1.5"},
		{name: "no decimals", value: "42", decimals: 0, want: "42"},
		{name: "less than one", value: "5", decimals: 6, want: "0.000005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amountOf(decimal.RequireFromString(tt.value), tt.decimals)
			require.Equal(t, tt.want, got.String())
		})
	}
}
