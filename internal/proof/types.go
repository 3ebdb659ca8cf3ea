package proof

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	StorageSlotsRequest struct {
		Target    common.Address  `json:"target"`
		Commands  []common.Hash   `json:"commands"`
		Constants []hexutil.Bytes `json:"constants"`
	}

	StorageSlotsResponse struct {
		Witness hexutil.Bytes `json:"witness"`
	}

	HealthResponse struct {
		Status      string         `json:"status"`
		BlockNumber hexutil.Uint64 `json:"block_number,omitempty"`
	}
)
