package ccip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/codec"
)

// Server dispatches CCIP-Read calls to the handlers of a sealed registry.
type Server struct {
	registry *Registry
	logger   *zap.Logger
}

func NewServer(registry *Registry, logger *zap.Logger) *Server {
	registry.Seal()
	return &Server{registry: registry, logger: logger}
}

// Call answers a single call. It never returns an error: every failure is mapped to a response.
func (s *Server) Call(ctx context.Context, call RPCCall) RPCResponse {
	start := time.Now()
	data, err := s.dispatch(ctx, call)
	response := toResponse(data, err)

	label := "invalid"
	if len(call.Data) >= 4 {
		label = selectorOf(call.Data).String()
	}
	// unknown selectors are not labelled individually to bound metric cardinality.
	if err != nil && err.Kind == KindNotFound {
		label = "unknown"
	}
	callCounter.WithLabelValues(label, strconv.Itoa(response.Status)).Inc()
	callDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil && err.Kind.Status() >= http.StatusInternalServerError {
		s.logger.Error("call failed",
			zap.Stringer("to", call.To),
			zap.Stringer("selector", err.Selector),
			zap.Stringer("kind", err.Kind),
			zap.Error(err.Err))
	} else if err != nil {
		s.logger.Debug("call rejected",
			zap.Stringer("to", call.To),
			zap.Stringer("kind", err.Kind),
			zap.Error(err.Err))
	}
	return response
}

func (s *Server) dispatch(ctx context.Context, call RPCCall) ([]byte, *CallError) {
	if len(call.Data) < 4 {
		return nil, &CallError{Kind: KindValidation, Err: errors.New("call data shorter than a function selector")}
	}
	selector := selectorOf(call.Data)
	handler, ok := s.registry.Find(selector)
	if !ok {
		return nil, &CallError{Kind: KindNotFound, Selector: selector, Err: errors.New("no handler registered")}
	}
	args, err := codec.Decode(handler.Function.Inputs, call.Data[4:])
	if err != nil {
		return nil, &CallError{Kind: KindDecode, Selector: selector, Err: err}
	}
	result, err := invoke(ctx, handler.Func, args, call)
	if err != nil {
		return nil, &CallError{Kind: KindHandler, Selector: selector, Err: err}
	}
	data, err := codec.Encode(handler.Function.Outputs, result)
	if err != nil {
		return nil, &CallError{Kind: KindEncode, Selector: selector, Err: err}
	}
	return data, nil
}

func invoke(ctx context.Context, fn HandlerFunc, args []any, call RPCCall) (result []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, args, call)
}

func toResponse(data []byte, err *CallError) RPCResponse {
	if err != nil {
		return RPCResponse{Status: err.Kind.Status(), Body: RPCResponseBody{Message: err.Message()}}
	}
	return RPCResponse{Status: http.StatusOK, Body: RPCResponseBody{Data: hexutil.Encode(data)}}
}

func selectorOf(data []byte) (s Selector) {
	copy(s[:], data[:4])
	return
}
