package proof

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ProverClient talks to the prover backend that builds storage proofs against the target chain.
type ProverClient interface {
	GetStorageSlots(ctx context.Context, req *StorageSlotsRequest) (*StorageSlotsResponse, error)
	Health(ctx context.Context) (*HealthResponse, error)
}

func NewProverClient(address string, httpClient *http.Client) ProverClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &jsonRpcProverClient{address: address, client: httpClient}
}

type jsonRpcProverClient struct {
	address string
	client  *http.Client
}

type request struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	Id      string `json:"id"`
}

type response[T any] struct {
	Jsonrpc string        `json:"jsonrpc"`
	Result  *T            `json:"result"`
	Error   *JsonRpcError `json:"error"`
	Id      string        `json:"id"`
}

type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewJsonRpcErrorFromErrorOrNil(err error) (rpcError *JsonRpcError) {
	errors.As(err, &rpcError)
	return
}

func (j *JsonRpcError) Error() string { return fmt.Sprintf("[%d] %s", j.Code, j.Message) }

func (c *jsonRpcProverClient) GetStorageSlots(ctx context.Context, req *StorageSlotsRequest) (*StorageSlotsResponse, error) {
	return send[StorageSlotsResponse](ctx, c, "proof_getStorageSlots", []any{req})
}

func (c *jsonRpcProverClient) Health(ctx context.Context) (*HealthResponse, error) {
	return send[HealthResponse](ctx, c, "proof_health", []any{})
}

func send[T any](ctx context.Context, c *jsonRpcProverClient, method string, params any) (*T, error) {
	jsonBytes, err := json.Marshal(request{"2.0", method, params, "0"})
	if err != nil {
		return nil, fmt.Errorf("failed to json.Marshal %w", err)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, err
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpResponse, err := c.client.Do(httpRequest)
	if err != nil {
		return nil, err
	}
	defer httpResponse.Body.Close()
	jsonBytes, err = io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, err
	}
	var res response[T]
	if err = json.Unmarshal(jsonBytes, &res); err != nil {
		return nil, fmt.Errorf("failed to json.Unmarshal prover response (status %d): %w", httpResponse.StatusCode, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	if res.Result == nil {
		return nil, fmt.Errorf("prover returned no result for %s", method)
	}
	return res.Result, nil
}
