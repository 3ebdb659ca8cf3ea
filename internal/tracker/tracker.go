// Package tracker reports gateway requests and results to a Plausible-compatible analytics
// endpoint. Reporting is best effort: failures are logged and never reach the caller.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://plausible.io/api/event"

type Options struct {
	Endpoint string
	// EventsPerSecond caps outgoing events; zero means unlimited.
	EventsPerSecond float64
	Timeout         time.Duration
	Client          *http.Client
}

// Request carries the parts of an inbound request that are reported.
type Request struct {
	URL       string
	Path      string
	Referrer  string
	UserAgent string
	SourceIP  string
}

type event struct {
	Domain   string            `json:"domain"`
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	Referrer string            `json:"referrer,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
}

type Tracker struct {
	domain   string
	endpoint string
	client   *http.Client
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func New(domain string, opts Options, logger *zap.Logger) *Tracker {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	limit := rate.Inf
	if opts.EventsPerSecond > 0 {
		limit = rate.Limit(opts.EventsPerSecond)
	}
	return &Tracker{
		domain:   domain,
		endpoint: endpoint,
		client:   client,
		timeout:  timeout,
		limiter:  rate.NewLimiter(limit, max(1, int(opts.EventsPerSecond))),
		logger:   logger,
	}
}

// TrackRequest reports an inbound request with the sender and call data found in its path.
func (t *Tracker) TrackRequest(req Request) {
	t.track(req, "request", DecodeProps(req.Path))
}

// TrackResult reports the response body produced for req. Bodies without data are skipped.
func (t *Tracker) TrackResult(req Request, responseBody string) {
	var response struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal([]byte(responseBody), &response); err != nil || response.Data == "" {
		return
	}
	props := DecodeProps(req.Path)
	result := response.Data
	if len(result) > 200 {
		result = result[:200]
	}
	props["result"] = result
	t.track(req, "result", props)
}

// Flush waits for events in flight or until ctx is done.
func (t *Tracker) Flush(ctx context.Context) {
	if t == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (t *Tracker) track(req Request, name string, props map[string]string) {
	if t == nil {
		return
	}
	if !t.limiter.Allow() {
		t.logger.Debug("tracker event dropped", zap.String("name", name))
		return
	}
	ev := event{Domain: t.domain, Name: name, URL: req.URL, Referrer: req.Referrer, Props: props}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.send(ctx, req, ev); err != nil {
			t.logger.Warn("failed to track event", zap.String("name", name), zap.Error(err))
			return
		}
		t.logger.Debug("event tracked", zap.String("name", name))
	}()
}

func (t *Tracker) send(ctx context.Context, req Request, ev event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if req.UserAgent != "" {
		httpRequest.Header.Set("User-Agent", req.UserAgent)
	}
	forwardedFor := "127.0.0.1"
	if req.SourceIP != "" {
		forwardedFor = req.SourceIP
	}
	httpRequest.Header.Set("X-Forwarded-For", forwardedFor)

	httpResponse, err := t.client.Do(httpRequest)
	if err != nil {
		return err
	}
	defer httpResponse.Body.Close()
	_, _ = io.Copy(io.Discard, httpResponse.Body)
	if httpResponse.StatusCode >= 300 {
		return fmt.Errorf("analytics endpoint responded with %d", httpResponse.StatusCode)
	}
	return nil
}

var callPath = regexp.MustCompile(`/(0x[a-fA-F0-9]{40})/(0x[a-fA-F0-9]+)\.json`)

// DecodeProps extracts the sender and call data from a "/{sender}/{callData}.json" path.
func DecodeProps(path string) map[string]string {
	props := map[string]string{}
	if m := callPath.FindStringSubmatch(path); m != nil {
		props["sender"] = m[1]
		props["calldata"] = m[2]
	}
	return props
}
