package caller

import (
	"math/big"
	"strings"

	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const erc20Abi = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// errors
var (
	ErrNotTransfer = errors.New("log is not an ERC20 transfer")
	ErrRemovedLog  = errors.New("log was removed by reorganization")
)

var (
	erc20 = mustParseAbi(erc20Abi)

	// TransferTopic - keccak256("Transfer(address,address,uint256)")
	TransferTopic = erc20.Events["Transfer"].ID
)

func mustParseAbi(data string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(data))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ParseTransfer - decodes ERC20 Transfer event into storage model. Timestamp is left empty.
func ParseTransfer(log types.Log) (storage.Transfer, error) {
	if log.Removed {
		return storage.Transfer{}, ErrRemovedLog
	}
	// ERC721 emits the same signature with indexed token id, so topic count tells them apart
	if len(log.Topics) != 3 || log.Topics[0] != TransferTopic {
		return storage.Transfer{}, ErrNotTransfer
	}
	if len(log.Data) != common.HashLength {
		return storage.Transfer{}, errors.Wrapf(ErrNotTransfer, "invalid data length: %d", len(log.Data))
	}

	amount := new(big.Int).SetBytes(log.Data)
	return storage.Transfer{
		FromAddress: lowerAddress(log.Topics[1]),
		ToAddress:   lowerAddress(log.Topics[2]),
		Amount:      decimal.NewFromBigInt(amount, 0),
		TxHash:      strings.ToLower(log.TxHash.Hex()),
		BlockNumber: int64(log.BlockNumber),
	}, nil
}

func lowerAddress(topic common.Hash) string {
	return strings.ToLower(common.BytesToAddress(topic.Bytes()).Hex())
}
