package postgres

import (
	"context"

	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-net/go-lib/database"
	"github.com/dipdup-net/indexer-sdk/pkg/storage/postgres"
	"github.com/uptrace/bun"
)

// Transfer -
type Transfer struct {
	*postgres.Table[*storage.Transfer]
}

// NewTransfer -
func NewTransfer(db *database.Bun) *Transfer {
	return &Transfer{
		Table: postgres.NewTable[*storage.Transfer](db),
	}
}

// ByAddress -
func (t *Transfer) ByAddress(ctx context.Context, address string) ([]storage.Transfer, error) {
	transfers := make([]storage.Transfer, 0)
	err := t.DB().NewSelect().
		Model(&transfers).
		Where("lower(from_address) = lower(?)", address).
		WhereOr("lower(to_address) = lower(?)", address).
		Order("id asc").
		Scan(ctx)
	return transfers, err
}

// WithoutTimestamp -
func (t *Transfer) WithoutTimestamp(ctx context.Context, afterID int64, limit int) ([]storage.Transfer, error) {
	if limit < 1 {
		limit = 10
	}

	transfers := make([]storage.Transfer, 0, limit)
	err := t.DB().NewSelect().
		Model(&transfers).
		Where("? IS NULL", bun.Ident("timestamp")).
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Scan(ctx)
	return transfers, err
}
