package transport

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/router"
	"github.com/kroma-network/kroma-ccip-gateway/internal/tracker"
)

// LambdaHandler serves a router behind an API Gateway HTTP API (payload format 2.0).
type LambdaHandler struct {
	app          *router.Router
	tracker      *tracker.Tracker
	timeout      time.Duration
	flushTimeout time.Duration
	logger       *zap.Logger
}

func NewLambdaHandler(app *router.Router, tracker *tracker.Tracker, timeout time.Duration, logger *zap.Logger) *LambdaHandler {
	return &LambdaHandler{app: app, tracker: tracker, timeout: timeout, flushTimeout: time.Second, logger: logger}
}

type lambdaRequest struct {
	event *events.APIGatewayV2HTTPRequest
	body  string
}

func (l lambdaRequest) Method() string { return l.event.RequestContext.HTTP.Method }
func (l lambdaRequest) Path() string   { return l.event.RequestContext.HTTP.Path }
func (l lambdaRequest) Body() string   { return l.body }

func (l lambdaRequest) Header(name string) string {
	if v, ok := l.event.Headers[strings.ToLower(name)]; ok {
		return v
	}
	return l.event.Headers[name]
}

// Handle is the lambda entrypoint. Errors are always mapped to a response, never returned.
func (h *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req := lambdaRequest{event: &event, body: event.Body}
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			h.logger.Warn("failed to decode base64 body", zap.Error(err))
		} else {
			req.body = string(decoded)
		}
	}
	info := tracker.Request{
		URL:       "http://" + event.RequestContext.DomainName + event.RawPath,
		Path:      event.RawPath,
		Referrer:  req.Header("Referer"),
		UserAgent: event.RequestContext.HTTP.UserAgent,
		SourceIP:  event.RequestContext.HTTP.SourceIP,
	}
	h.tracker.TrackRequest(info)

	handleCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		handleCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	resp := h.app.Handle(handleCtx, req)
	h.tracker.TrackResult(info, resp.Body)

	// the runtime freezes after returning, so give pending events a bounded chance to leave.
	flushCtx, cancel := context.WithTimeout(ctx, h.flushTimeout)
	defer cancel()
	h.tracker.Flush(flushCtx)

	return events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
