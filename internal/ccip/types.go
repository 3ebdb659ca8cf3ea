package ccip

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type (
	// RPCCall is a single off-chain lookup: the contract that reverted with OffchainLookup
	// and the call data it asked the gateway to answer.
	RPCCall struct {
		To   common.Address
		Data []byte
	}

	RPCResponse struct {
		Status int
		Body   RPCResponseBody
	}

	RPCResponseBody struct {
		Data    string `json:"data,omitempty"`
		Message string `json:"message,omitempty"`
	}

	// HandlerFunc produces the return values of a function from its decoded arguments.
	HandlerFunc func(ctx context.Context, args []any, call RPCCall) ([]any, error)

	// HandlerDescription names a function of an interface and the handler serving it.
	// Type is either a bare function name or a canonical signature.
	HandlerDescription struct {
		Type string
		Func HandlerFunc
	}

	HandlerDescriptor struct {
		Selector Selector
		Function abi.Method
		Func     HandlerFunc
	}
)

// Selector is the first four bytes of the keccak-256 hash of a canonical function signature.
type Selector [4]byte

func SelectorOf(signature string) (s Selector) {
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return
}

func (s Selector) String() string { return "0x" + hex.EncodeToString(s[:]) }
