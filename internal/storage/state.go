package storage

import (
	"context"
	"time"

	"github.com/dipdup-net/indexer-sdk/pkg/storage"
	"github.com/uptrace/bun"
)

// IState -
type IState interface {
	storage.Table[*State]

	ByName(ctx context.Context, name string) (State, error)
}

// State -
type State struct {
	bun.BaseModel `bun:"table:state" comment:"Table contains current indexer's state"`

	ID         uint64    `bun:"id,pk,autoincrement" comment:"Unique internal identity"`
	Name       string    `bun:",unique:state_name" comment:"Indexer human-readable name"`
	LastHeight uint64    `bun:",notnull" comment:"Last indexed block height"`
	LastTime   time.Time `comment:"Time when last block was indexed"`
}

// TableName -
func (State) TableName() string {
	return "state"
}
