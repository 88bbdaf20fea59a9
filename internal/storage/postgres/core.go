package postgres

import (
	"context"

	models "github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-net/go-lib/config"
	"github.com/dipdup-net/go-lib/database"
	"github.com/dipdup-net/indexer-sdk/pkg/storage/postgres"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Storage -
type Storage struct {
	*postgres.Storage

	Transfer models.ITransfer
	State    models.IState
}

// Create -
func Create(ctx context.Context, cfg config.Database) (Storage, error) {
	strg, err := postgres.Create(ctx, cfg, initDatabase)
	if err != nil {
		return Storage{}, err
	}

	s := Storage{
		Storage:  strg,
		Transfer: NewTransfer(strg.Connection()),
		State:    NewState(strg.Connection()),
	}

	return s, nil
}

func initDatabase(ctx context.Context, conn *database.Bun) error {
	log.Info().Msg("creating tables...")
	for _, data := range models.Models {
		if _, err := conn.DB().NewCreateTable().IfNotExists().Model(data).Exec(ctx); err != nil {
			if err := conn.Close(); err != nil {
				return err
			}
			return errors.Wrapf(err, "create table %s", data.TableName())
		}
	}

	data := make([]any, len(models.Models))
	for i := range models.Models {
		data[i] = models.Models[i]
	}
	if err := database.MakeComments(ctx, conn, data...); err != nil {
		return errors.Wrap(err, "make comments")
	}
	return nil
}
