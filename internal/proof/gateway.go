package proof

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/kroma-network/kroma-ccip-gateway/internal/ccip"
)

// GatewayABI is the interface verifier contracts call through OffchainLookup.
var GatewayABI = []string{
	"function getStorageSlots(address addr, bytes32[] memory commands, bytes[] memory constants) external view returns (bytes memory witness)",
}

// ProofService produces storage proofs for a target contract.
type ProofService interface {
	GetStorageSlots(ctx context.Context, req *StorageSlotsRequest) (*StorageSlotsResponse, error)
}

// Gateway exposes a ProofService as CCIP-Read handlers.
type Gateway struct {
	service ProofService
}

func NewGateway(service ProofService) *Gateway {
	return &Gateway{service: service}
}

func (g *Gateway) Register(registry *ccip.Registry) error {
	return registry.Register(GatewayABI, []ccip.HandlerDescription{
		{Type: "getStorageSlots", Func: g.getStorageSlots},
	})
}

func (g *Gateway) getStorageSlots(ctx context.Context, args []any, _ ccip.RPCCall) ([]any, error) {
	target, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected addr argument %T", args[0])
	}
	commands, ok := args[1].([][32]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected commands argument %T", args[1])
	}
	constants, ok := args[2].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected constants argument %T", args[2])
	}
	req := &StorageSlotsRequest{
		Target:    target,
		Commands:  make([]common.Hash, len(commands)),
		Constants: make([]hexutil.Bytes, len(constants)),
	}
	for i, command := range commands {
		req.Commands[i] = command
	}
	for i, constant := range constants {
		req.Constants[i] = constant
	}
	res, err := g.service.GetStorageSlots(ctx, req)
	if err != nil {
		return nil, err
	}
	return []any{[]byte(res.Witness)}, nil
}
