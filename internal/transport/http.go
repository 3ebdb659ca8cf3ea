// Package transport adapts hosting runtimes to the runtime-independent router.
package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/router"
	"github.com/kroma-network/kroma-ccip-gateway/internal/tracker"
)

const maxBodyBytes = 1 << 20

// HTTPHandler serves a router from a net/http server.
type HTTPHandler struct {
	app     *router.Router
	tracker *tracker.Tracker
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPHandler returns a handler bounding every request by timeout. A zero timeout leaves
// requests bounded only by the server's own timeouts. tracker may be nil.
func NewHTTPHandler(app *router.Router, tracker *tracker.Tracker, timeout time.Duration, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{app: app, tracker: tracker, timeout: timeout, logger: logger}
}

type httpRequest struct {
	r    *http.Request
	body string
}

func (h httpRequest) Method() string            { return h.r.Method }
func (h httpRequest) Path() string              { return h.r.URL.Path }
func (h httpRequest) Body() string              { return h.body }
func (h httpRequest) Header(name string) string { return h.r.Header.Get(name) }

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeResponse(w, router.Error(http.StatusRequestEntityTooLarge))
		return
	}
	info := tracker.Request{
		URL:       "http://" + r.Host + r.URL.RequestURI(),
		Path:      r.URL.Path,
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
		SourceIP:  sourceIP(r),
	}
	h.tracker.TrackRequest(info)

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	resp := h.app.Handle(ctx, httpRequest{r: r, body: string(body)})
	writeResponse(w, resp)
	h.tracker.TrackResult(info, resp.Body)
}

func writeResponse(w http.ResponseWriter, resp *router.Response) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}

func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
