package ccip

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/router"
)

const sender = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"

type testRequest struct {
	method string
	path   string
	body   string
}

func (r testRequest) Method() string       { return r.method }
func (r testRequest) Path() string         { return r.path }
func (r testRequest) Body() string         { return r.body }
func (r testRequest) Header(string) string { return "" }

type testGateway struct {
	server *Server
	app    *router.Router
	calls  atomic.Int32
}

func newTestGateway(t *testing.T, handler HandlerFunc) *testGateway {
	g := &testGateway{}
	registry := NewRegistry()
	err := registry.Register(resolverJSON, []HandlerDescription{{
		Type: "resolve",
		Func: func(ctx context.Context, args []any, call RPCCall) ([]any, error) {
			g.calls.Add(1)
			return handler(ctx, args, call)
		},
	}})
	require.NoError(t, err)
	g.server = NewServer(registry, zap.NewNop())
	g.app = g.server.MakeApp("/", true)
	return g
}

func echoHandler(_ context.Context, args []any, _ RPCCall) ([]any, error) {
	name := args[0].([]byte)
	data := args[1].([]byte)
	return []any{append(append([]byte{}, name...), data...)}, nil
}

func resolveCallData(t *testing.T, name, data []byte) []byte {
	fn, err := MustParseInterface(resolverJSON).Function("resolve")
	require.NoError(t, err)
	packed, err := fn.Inputs.Pack(name, data)
	require.NoError(t, err)
	return append(append([]byte{}, fn.ID...), packed...)
}

func decodeBody(t *testing.T, resp *router.Response) RPCResponseBody {
	var body RPCResponseBody
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestCallSuccess(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	calldata := resolveCallData(t, []byte("abc"), []byte("def"))

	resp := g.server.Call(context.Background(), RPCCall{To: common.HexToAddress(sender), Data: calldata})
	require.Equal(t, http.StatusOK, resp.Status)

	fn, _ := MustParseInterface(resolverJSON).Function("resolve")
	expected, err := fn.Outputs.Pack([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(expected), resp.Body.Data)
	assert.Empty(t, resp.Body.Message)
}

func TestCallNoOutputsReturnsEmptyBytes(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("function ping(uint256 nonce)", []HandlerDescription{{
		Type: "ping",
		Func: func(context.Context, []any, RPCCall) ([]any, error) { return nil, nil },
	}}))
	server := NewServer(registry, zap.NewNop())

	fn, _ := MustParseInterface("function ping(uint256 nonce)").Function("ping")
	packed, err := fn.Inputs.Pack(common.Big1)
	require.NoError(t, err)

	resp := server.Call(context.Background(), RPCCall{Data: append(fn.ID, packed...)})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "0x", resp.Body.Data)
}

func TestCallUnknownSelector(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	resp := g.server.Call(context.Background(), RPCCall{Data: hexutil.MustDecode("0xdeadbeef00")})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "No implementation for function with selector 0xdeadbeef", resp.Body.Message)
	assert.Zero(t, g.calls.Load())
}

func TestCallShortData(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	resp := g.server.Call(context.Background(), RPCCall{Data: []byte{0x90, 0x61}})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Zero(t, g.calls.Load())
}

func TestCallMalformedPayloadIsServerFault(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	calldata := resolveCallData(t, []byte("abc"), []byte("def"))
	resp := g.server.Call(context.Background(), RPCCall{Data: calldata[:len(calldata)-33]})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal Server Error", resp.Body.Message)
	assert.Zero(t, g.calls.Load())
}

func TestCallHandlerErrorIsOpaque(t *testing.T) {
	g := newTestGateway(t, func(context.Context, []any, RPCCall) ([]any, error) {
		return nil, errors.New("upstream rpc secret-token-123 refused")
	})
	resp := g.server.Call(context.Background(), RPCCall{Data: resolveCallData(t, nil, nil)})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.NotContains(t, resp.Body.Message, "secret-token-123")
	assert.Empty(t, resp.Body.Data)
}

func TestCallHandlerPanic(t *testing.T) {
	g := newTestGateway(t, func(context.Context, []any, RPCCall) ([]any, error) {
		panic("boom")
	})
	resp := g.server.Call(context.Background(), RPCCall{Data: resolveCallData(t, nil, nil)})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.NotContains(t, resp.Body.Message, "boom")
}

func TestCallArityMismatchIsEncodeError(t *testing.T) {
	g := newTestGateway(t, func(context.Context, []any, RPCCall) ([]any, error) {
		return []any{[]byte{1}, []byte{2}}, nil
	})
	resp := g.server.Call(context.Background(), RPCCall{Data: resolveCallData(t, nil, nil)})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestCallPassesRPCCallToHandler(t *testing.T) {
	var seen RPCCall
	g := newTestGateway(t, func(_ context.Context, args []any, call RPCCall) ([]any, error) {
		seen = call
		return []any{[]byte{}}, nil
	})
	calldata := resolveCallData(t, []byte("x"), nil)
	g.server.Call(context.Background(), RPCCall{To: common.HexToAddress(sender), Data: calldata})
	assert.Equal(t, common.HexToAddress(sender), seen.To)
	assert.Equal(t, calldata, seen.Data)
}

func TestToResponse(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindDecode, http.StatusInternalServerError},
		{KindHandler, http.StatusInternalServerError},
		{KindEncode, http.StatusInternalServerError},
	}
	for _, c := range cases {
		resp := toResponse(nil, &CallError{Kind: c.kind, Err: errors.New("cause")})
		assert.Equal(t, c.status, resp.Status, c.kind.String())
		assert.NotEmpty(t, resp.Body.Message)
		assert.Empty(t, resp.Body.Data)
	}
	ok := toResponse([]byte{0xab}, nil)
	assert.Equal(t, http.StatusOK, ok.Status)
	assert.Equal(t, "0xab", ok.Body.Data)
}

func TestAppLiveness(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	resp := g.app.Handle(context.Background(), testRequest{method: http.MethodGet, path: "/"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"hey ho!"`, resp.Body)
}

func TestAppGetSuccess(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	calldata := hexutil.Encode(resolveCallData(t, []byte("vitalik"), []byte{0x3b, 0x3b, 0x57, 0xde}))
	resp := g.app.Handle(context.Background(), testRequest{method: http.MethodGet, path: "/" + sender + "/" + calldata + ".json"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	body := decodeBody(t, resp)
	assert.True(t, strings.HasPrefix(body.Data, "0x"))
	assert.Empty(t, body.Message)
}

func TestAppGetUnknownSelector(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	resp := g.app.Handle(context.Background(), testRequest{method: http.MethodGet, path: "/" + sender + "/0xdeadbeef.json"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, `{"message":"No implementation for function with selector 0xdeadbeef"}`, resp.Body)
}

func TestAppPostSuccess(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	body, _ := json.Marshal(map[string]string{
		"sender": sender,
		"data":   hexutil.Encode(resolveCallData(t, []byte("a"), []byte("b"))),
	})
	resp := g.app.Handle(context.Background(), testRequest{method: http.MethodPost, path: "/", body: string(body)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp).Data)
}

func TestAppRejectsInvalidInputBeforeHandler(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	valid := hexutil.Encode(resolveCallData(t, nil, nil))
	requests := []testRequest{
		{method: http.MethodPost, path: "/", body: `{"sender":"not-an-address","data":"0x1234"}`},
		{method: http.MethodPost, path: "/", body: `{"sender":"` + sender + `","data":"0xzz"}`},
		{method: http.MethodPost, path: "/", body: `{"sender":"` + sender[:20] + `","data":"` + valid + `"}`},
		{method: http.MethodPost, path: "/", body: `not json`},
		{method: http.MethodGet, path: "/not-an-address/" + valid + ".json"},
		{method: http.MethodGet, path: "/" + sender + "/0x123.json"},
		{method: http.MethodGet, path: "/" + sender + "/1234abcd.json"},
		{method: http.MethodGet, path: "/" + strings.TrimPrefix(sender, "0x") + "/" + valid + ".json"},
	}
	for _, req := range requests {
		resp := g.app.Handle(context.Background(), req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s %s %s", req.method, req.path, req.body)
	}
	assert.Zero(t, g.calls.Load())
}

func TestAppHandlerFailure(t *testing.T) {
	g := newTestGateway(t, func(context.Context, []any, RPCCall) ([]any, error) {
		return nil, errors.New("proof unavailable")
	})
	resp := g.app.Handle(context.Background(), testRequest{
		method: http.MethodGet,
		path:   "/" + sender + "/" + hexutil.Encode(resolveCallData(t, nil, nil)) + ".json",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, resp.Body, "proof unavailable")
}

func TestAppPreflight(t *testing.T) {
	g := newTestGateway(t, echoHandler)
	resp := g.app.Handle(context.Background(), testRequest{method: http.MethodOptions, path: "/anything"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Headers["Access-Control-Allow-Methods"])
	assert.Zero(t, g.calls.Load())
}

func TestParseCall(t *testing.T) {
	call, err := ParseCall(sender, "0x9061b923")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(sender), call.To)
	assert.Equal(t, []byte{0x90, 0x61, 0xb9, 0x23}, call.Data)

	_, err = ParseCall(sender, "0x")
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, KindValidation, callErr.Kind)
}
