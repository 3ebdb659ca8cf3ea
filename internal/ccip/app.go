package ccip

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/kroma-network/kroma-ccip-gateway/internal/router"
)

// MakeApp returns a router serving the gateway under prefix. A contract should use the URL
// template "https://<host><prefix>/{sender}/{data}.json", or POST to "<prefix>".
func (s *Server) MakeApp(prefix string, cors bool) *router.Router {
	return router.New(router.Options{ResourcePath: prefix, IncludeCORS: cors, Logger: s.logger}).
		Get("", func(_ context.Context, _ map[string]string, _ router.Request) (*router.Response, error) {
			return router.OK("hey ho!"), nil
		}).
		Get(":sender/:callData.json", func(ctx context.Context, params map[string]string, _ router.Request) (*router.Response, error) {
			return s.serveCall(ctx, params["sender"], params["callData"]), nil
		}).
		Post("", func(ctx context.Context, _ map[string]string, req router.Request) (*router.Response, error) {
			var body struct {
				Sender string `json:"sender"`
				Data   string `json:"data"`
			}
			if err := json.Unmarshal([]byte(req.Body()), &body); err != nil {
				return router.Error(http.StatusBadRequest), nil
			}
			return s.serveCall(ctx, body.Sender, body.Data), nil
		})
}

func (s *Server) serveCall(ctx context.Context, sender, callData string) *router.Response {
	call, err := ParseCall(sender, callData)
	if err != nil {
		return router.Error(http.StatusBadRequest)
	}
	response := s.Call(ctx, call)
	return router.JSON(response.Status, response.Body)
}

// ParseCall validates a 0x-prefixed 20-byte sender address and 0x-prefixed call data.
func ParseCall(sender, callData string) (RPCCall, error) {
	if !has0xPrefix(sender) || !common.IsHexAddress(sender) {
		return RPCCall{}, &CallError{Kind: KindValidation, Err: errInvalidSender}
	}
	data, err := hexutil.Decode(callData)
	if err != nil {
		return RPCCall{}, &CallError{Kind: KindValidation, Err: errInvalidCallData}
	}
	if len(data) < 4 {
		return RPCCall{}, &CallError{Kind: KindValidation, Err: errInvalidCallData}
	}
	return RPCCall{To: common.HexToAddress(sender), Data: data}, nil
}

func has0xPrefix(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}
