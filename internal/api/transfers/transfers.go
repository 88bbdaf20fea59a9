package transfers

import (
	"net/http"

	"github.com/dipdup-io/token-transfers/internal/api/utils"
	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

type Transfers struct {
	storage storage.ITransfer
}

func New(transfers storage.ITransfer) *Transfers {
	return &Transfers{
		storage: transfers,
	}
}

func (t *Transfers) handleGetTransfersByAddress(w http.ResponseWriter, req *http.Request) error {
	address := mux.Vars(req)["address"]

	transfers, err := t.storage.ByAddress(req.Context(), address)
	if err != nil {
		return errors.Wrap(err, "transfers by address")
	}
	if transfers == nil {
		transfers = []storage.Transfer{}
	}
	return utils.WriteJSON(w, transfers)
}

func (t *Transfers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").
		Methods(http.MethodGet, http.MethodHead).
		Name("GET /api/transfers/{address}").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetTransfersByAddress))
}
