package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const callPathFixture = "/0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/0x9061b923.json"

type recorded struct {
	event   event
	headers http.Header
}

func newAnalytics(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	var mu sync.Mutex
	var events []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		events = append(events, recorded{event: ev, headers: r.Header.Clone()})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded{}, events...)
	}
}

func flush(t *testing.T, tr *Tracker) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr.Flush(ctx)
}

func TestTrackRequestAndResult(t *testing.T) {
	srv, events := newAnalytics(t, http.StatusAccepted)
	tr := New("gateway.example", Options{Endpoint: srv.URL}, zap.NewNop())
	req := Request{
		URL:       "http://gateway.example" + callPathFixture,
		Path:      callPathFixture,
		UserAgent: "viem/2.0",
		SourceIP:  "203.0.113.7",
	}

	tr.TrackRequest(req)
	tr.TrackResult(req, `{"data":"0x`+strings.Repeat("ab", 150)+`"}`)
	flush(t, tr)

	got := events()
	require.Len(t, got, 2)
	byName := map[string]recorded{}
	for _, r := range got {
		byName[r.event.Name] = r
	}

	request := byName["request"]
	assert.Equal(t, "gateway.example", request.event.Domain)
	assert.Equal(t, req.URL, request.event.URL)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", request.event.Props["sender"])
	assert.Equal(t, "0x9061b923", request.event.Props["calldata"])
	assert.Equal(t, "viem/2.0", request.headers.Get("User-Agent"))
	assert.Equal(t, "203.0.113.7", request.headers.Get("X-Forwarded-For"))

	result := byName["result"]
	assert.Len(t, result.event.Props["result"], 200)
	assert.Equal(t, "0x9061b923", result.event.Props["calldata"])
}

func TestTrackResultSkipsErrors(t *testing.T) {
	srv, events := newAnalytics(t, http.StatusAccepted)
	tr := New("gateway.example", Options{Endpoint: srv.URL}, zap.NewNop())
	tr.TrackResult(Request{Path: "/"}, `{"message":"Not Found"}`)
	tr.TrackResult(Request{Path: "/"}, `not json`)
	flush(t, tr)
	assert.Empty(t, events())
}

func TestFailuresAreSwallowed(t *testing.T) {
	srv, events := newAnalytics(t, http.StatusInternalServerError)
	tr := New("gateway.example", Options{Endpoint: srv.URL}, zap.NewNop())
	tr.TrackRequest(Request{Path: "/"})
	flush(t, tr)
	assert.Len(t, events(), 1)

	unreachable := New("gateway.example", Options{Endpoint: "http://127.0.0.1:1", Timeout: time.Second}, zap.NewNop())
	unreachable.TrackRequest(Request{Path: "/"})
	flush(t, unreachable)
}

func TestRateLimit(t *testing.T) {
	srv, events := newAnalytics(t, http.StatusAccepted)
	tr := New("gateway.example", Options{Endpoint: srv.URL, EventsPerSecond: 1}, zap.NewNop())
	for i := 0; i < 5; i++ {
		tr.TrackRequest(Request{Path: "/"})
	}
	flush(t, tr)
	assert.Len(t, events(), 1)
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	tr.TrackRequest(Request{Path: callPathFixture})
	tr.TrackResult(Request{Path: callPathFixture}, `{"data":"0x01"}`)
	tr.Flush(context.Background())
}

func TestDecodeProps(t *testing.T) {
	assert.Equal(t, map[string]string{
		"sender":   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"calldata": "0x9061b923",
	}, DecodeProps("/gateway"+callPathFixture))
	assert.Empty(t, DecodeProps("/"))
	assert.Empty(t, DecodeProps("/0x1234/0x9061b923.json"))
}
