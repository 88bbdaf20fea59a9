package main

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/dipdup-io/token-transfers/internal/caller"
	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var errNode = errors.New("node is unavailable")

type testCaller struct {
	head       uint64
	logs       []types.Log
	blockTimes map[uint64]time.Time
	decimals   map[common.Address]uint8

	mx         sync.Mutex
	ranges     [][2]uint64
	timeCalls  int
	failRanges bool
}

func (c *testCaller) Head(ctx context.Context) (uint64, error) {
	return c.head, nil
}

func (c *testCaller) TransferLogs(ctx context.Context, contracts []common.Address, from, to uint64) ([]types.Log, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.failRanges {
		return nil, errNode
	}
	c.ranges = append(c.ranges, [2]uint64{from, to})

	result := make([]types.Log, 0)
	for i := range c.logs {
		if c.logs[i].BlockNumber >= from && c.logs[i].BlockNumber <= to {
			result = append(result, c.logs[i])
		}
	}
	return result, nil
}

func (c *testCaller) BlockTime(ctx context.Context, level uint64) (time.Time, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.timeCalls++
	ts, ok := c.blockTimes[level]
	if !ok {
		return time.Time{}, errNode
	}
	return ts, nil
}

func (c *testCaller) Decimals(ctx context.Context, contract common.Address) (uint8, error) {
	d, ok := c.decimals[contract]
	if !ok {
		return 0, errNode
	}
	return d, nil
}

var _ caller.Caller = (*testCaller)(nil)

var testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func newTransferLog(level uint64, tx string, from, to string, amount int64) types.Log {
	return types.Log{
		Address: testContract,
		Topics: []common.Hash{
			caller.TransferTopic,
			common.BytesToHash(common.HexToAddress(from).Bytes()),
			common.BytesToHash(common.HexToAddress(to).Bytes()),
		},
		Data:        common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
		BlockNumber: level,
		TxHash:      common.HexToHash(tx),
	}
}

// testTransfers - in-memory transfers table
type testTransfers struct {
	storage.ITransfer

	mx      sync.Mutex
	rows    []storage.Transfer
	updated map[int64]storage.Transfer
	fail    bool
}

func (t *testTransfers) WithoutTimestamp(ctx context.Context, afterID int64, limit int) ([]storage.Transfer, error) {
	t.mx.Lock()
	defer t.mx.Unlock()

	result := make([]storage.Transfer, 0)
	for i := range t.rows {
		if t.rows[i].ID <= afterID || t.rows[i].Timestamp != nil {
			continue
		}
		if len(result) == limit {
			break
		}
		result = append(result, t.rows[i])
	}
	return result, nil
}

func newTestTransfers() *testTransfers {
	return &testTransfers{
		updated: make(map[int64]storage.Transfer),
	}
}

func (t *testTransfers) Update(ctx context.Context, transfer *storage.Transfer) error {
	t.mx.Lock()
	defer t.mx.Unlock()

	if t.fail {
		return errors.New("connection refused")
	}
	t.updated[transfer.ID] = *transfer
	return nil
}
