package postgres

import (
	"context"

	models "github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-net/indexer-sdk/pkg/storage"
	"github.com/uptrace/bun"
)

// Transaction -
type Transaction struct {
	storage.Transaction
}

// BeginTransaction -
func BeginTransaction(ctx context.Context, tx storage.Transactable) (Transaction, error) {
	t, err := tx.BeginTransaction(ctx)
	return Transaction{t}, err
}

// KnownTxHashes - returns the subset of hashes which already stored in transfers table
func (t Transaction) KnownTxHashes(ctx context.Context, hashes []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(hashes) == 0 {
		return known, nil
	}

	var stored []string
	if err := t.Tx().NewSelect().
		Model((*models.Transfer)(nil)).
		Column("tx_hash").
		Where("tx_hash IN (?)", bun.In(hashes)).
		Scan(ctx, &stored); err != nil {
		return nil, err
	}

	for i := range stored {
		known[stored[i]] = struct{}{}
	}
	return known, nil
}

// SaveTransfers -
func (t Transaction) SaveTransfers(ctx context.Context, transfers ...models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	_, err := t.Tx().NewInsert().Model(&transfers).Exec(ctx)
	return err
}

// UpdateState -
func (t Transaction) UpdateState(ctx context.Context, state *models.State) error {
	_, err := t.Tx().NewUpdate().
		Model(state).
		Column("last_height", "last_time").
		WherePK().
		Exec(ctx)
	return err
}
