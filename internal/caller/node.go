package caller

import (
	"context"
	"math/big"
	"time"

	"github.com/dipdup-net/go-lib/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// NodeRpcCaller -
type NodeRpcCaller struct {
	api     *ethclient.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewNodeRpcCaller -
func NewNodeRpcCaller(ctx context.Context, cfg config.DataSource) (*NodeRpcCaller, error) {
	timeout := time.Second * 10
	if cfg.Timeout > 0 {
		timeout = time.Second * time.Duration(cfg.Timeout)
	}

	api, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", cfg.URL)
	}

	nrc := &NodeRpcCaller{
		api:     api,
		timeout: timeout,
	}
	if rps := int(cfg.RequestsPerSecond); rps > 0 {
		nrc.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return nrc, nil
}

func (nrc *NodeRpcCaller) request(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if nrc.limiter != nil {
		if err := nrc.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, nrc.timeout)
	return reqCtx, cancel, nil
}

// Head -
func (nrc *NodeRpcCaller) Head(ctx context.Context) (uint64, error) {
	reqCtx, cancelReq, err := nrc.request(ctx)
	if err != nil {
		return 0, err
	}
	defer cancelReq()

	return nrc.api.BlockNumber(reqCtx)
}

// TransferLogs -
func (nrc *NodeRpcCaller) TransferLogs(ctx context.Context, contracts []common.Address, from, to uint64) ([]types.Log, error) {
	reqCtx, cancelReq, err := nrc.request(ctx)
	if err != nil {
		return nil, err
	}
	defer cancelReq()

	return nrc.api.FilterLogs(reqCtx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: contracts,
		Topics:    [][]common.Hash{{TransferTopic}},
	})
}

// BlockTime -
func (nrc *NodeRpcCaller) BlockTime(ctx context.Context, level uint64) (time.Time, error) {
	reqCtx, cancelReq, err := nrc.request(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer cancelReq()

	header, err := nrc.api.HeaderByNumber(reqCtx, new(big.Int).SetUint64(level))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "header %d", level)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// Decimals -
func (nrc *NodeRpcCaller) Decimals(ctx context.Context, contract common.Address) (uint8, error) {
	input, err := erc20.Pack("decimals")
	if err != nil {
		return 0, err
	}

	reqCtx, cancelReq, err := nrc.request(ctx)
	if err != nil {
		return 0, err
	}
	defer cancelReq()

	output, err := nrc.api.CallContract(reqCtx, ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "call decimals of %s", contract.Hex())
	}

	values, err := erc20.Unpack("decimals", output)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, errors.Errorf("unexpected decimals output length: %d", len(values))
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, errors.Errorf("unexpected decimals type: %T", values[0])
	}
	return decimals, nil
}

// Close -
func (nrc *NodeRpcCaller) Close() error {
	nrc.api.Close()
	return nil
}
