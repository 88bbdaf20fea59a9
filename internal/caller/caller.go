package caller

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Caller -
type Caller interface {
	Head(ctx context.Context) (uint64, error)
	TransferLogs(ctx context.Context, contracts []common.Address, from, to uint64) ([]types.Log, error)
	BlockTime(ctx context.Context, level uint64) (time.Time, error)
	Decimals(ctx context.Context, contract common.Address) (uint8, error)
}
