package proof

import (
	"context"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/ccip"
)

type recordingService struct {
	last *StorageSlotsRequest
}

func (r *recordingService) GetStorageSlots(_ context.Context, req *StorageSlotsRequest) (*StorageSlotsResponse, error) {
	r.last = req
	return &StorageSlotsResponse{Witness: hexutil.Bytes{0x01, 0x02, 0x03}}, nil
}

func TestGatewayGetStorageSlots(t *testing.T) {
	service := &recordingService{}
	registry := ccip.NewRegistry()
	require.NoError(t, NewGateway(service).Register(registry))
	server := ccip.NewServer(registry, zap.NewNop())

	fn, err := ccip.MustParseInterface(GatewayABI).Function("getStorageSlots")
	require.NoError(t, err)
	assert.Equal(t, "getStorageSlots(address,bytes32[],bytes[])", fn.Sig)

	target := common.HexToAddress("0x2222222222222222222222222222222222222222")
	commands := [][32]byte{common.HexToHash("0x0102")}
	constants := [][]byte{{0xaa}, {0xbb, 0xcc}}
	packed, err := fn.Inputs.Pack(target, commands, constants)
	require.NoError(t, err)

	resp := server.Call(context.Background(), ccip.RPCCall{To: target, Data: append(fn.ID, packed...)})
	require.Equal(t, http.StatusOK, resp.Status)

	expected, err := fn.Outputs.Pack([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(expected), resp.Body.Data)

	require.NotNil(t, service.last)
	assert.Equal(t, target, service.last.Target)
	assert.Equal(t, []common.Hash{common.HexToHash("0x0102")}, service.last.Commands)
	assert.Equal(t, []hexutil.Bytes{{0xaa}, {0xbb, 0xcc}}, service.last.Constants)
}

func TestGatewayRegisterTwiceFails(t *testing.T) {
	registry := ccip.NewRegistry()
	gateway := NewGateway(&recordingService{})
	require.NoError(t, gateway.Register(registry))
	var regErr *ccip.RegistrationError
	require.ErrorAs(t, gateway.Register(registry), &regErr)
}
