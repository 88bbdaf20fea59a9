package storage

import (
	"context"
	"time"

	"github.com/dipdup-net/indexer-sdk/pkg/storage"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ITransfer -
type ITransfer interface {
	storage.Table[*Transfer]

	// ByAddress returns every transfer where address equals sender or receiver ignoring case.
	ByAddress(ctx context.Context, address string) ([]Transfer, error)
	// WithoutTimestamp returns transfers with unknown block time and id greater than afterID.
	WithoutTimestamp(ctx context.Context, afterID int64, limit int) ([]Transfer, error)
}

// Transfer - token movement between two addresses
type Transfer struct {
	bun.BaseModel `bun:"table:transfers" comment:"Table with token transfers."`

	ID          int64           `bun:"id,pk,autoincrement" json:"id" comment:"Unique internal identity"`
	FromAddress string          `json:"fromAddress" comment:"Sender address"`
	ToAddress   string          `json:"toAddress" comment:"Receiver address"`
	Amount      decimal.Decimal `bun:",type:numeric" json:"amount" comment:"Transferred amount in token base units"`
	TxHash      string          `json:"txHash" comment:"Hash of transaction which contains transfer"`
	BlockNumber int64           `json:"blockNumber" comment:"Number of block which contains transfer"`
	Timestamp   *time.Time      `bun:",type:timestamp" json:"timestamp" comment:"Block time"`
}

// TableName -
func (Transfer) TableName() string {
	return "transfers"
}

// MarshalJSON - amount is written as JSON number
func (t Transfer) MarshalJSON() ([]byte, error) {
	type alias Transfer
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{
		alias:  alias(t),
		Amount: json.Number(t.Amount.String()),
	})
}
