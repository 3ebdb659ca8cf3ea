// Package router binds HTTP method and path templates to handlers, independent of the
// runtime hosting them.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Request is the runtime-independent view of an inbound request.
type Request interface {
	Method() string
	Path() string
	Body() string
	Header(name string) string
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// HandlerFunc serves a matched route. params holds the values bound by ":name" segments.
type HandlerFunc func(ctx context.Context, params map[string]string, req Request) (*Response, error)

type Options struct {
	// ResourcePath prefixes every route pattern.
	ResourcePath string
	IncludeCORS  bool
	Logger       *zap.Logger
}

type Router struct {
	prefix string
	cors   bool
	routes []*route
	logger *zap.Logger
}

type route struct {
	method   string
	pattern  string
	segments []segment
	handler  HandlerFunc
}

// segment is a literal path component or a ":name" parameter followed by a literal suffix.
type segment struct {
	literal string
	param   string
	suffix  string
}

func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{prefix: opts.ResourcePath, cors: opts.IncludeCORS, logger: logger}
}

func (r *Router) Get(pattern string, h HandlerFunc) *Router {
	return r.add(http.MethodGet, pattern, h)
}

func (r *Router) Post(pattern string, h HandlerFunc) *Router {
	return r.add(http.MethodPost, pattern, h)
}

func (r *Router) add(method, pattern string, h HandlerFunc) *Router {
	full := joinPath(r.prefix, pattern)
	r.routes = append(r.routes, &route{
		method:   method,
		pattern:  full,
		segments: parsePattern(full),
		handler:  h,
	})
	return r
}

// Handle dispatches req to the first route matching its method and path. It always returns
// a response; handler errors and panics become 500.
func (r *Router) Handle(ctx context.Context, req Request) (resp *Response) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("route handler panic", zap.String("path", req.Path()), zap.Any("panic", p))
			resp = r.withCORS(Error(http.StatusInternalServerError))
		}
	}()
	method := strings.ToUpper(req.Method())
	if r.cors && method == http.MethodOptions {
		return r.withCORS(&Response{StatusCode: http.StatusNoContent, Headers: map[string]string{}})
	}
	parts := splitPath(req.Path())
	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		params, ok := rt.match(parts)
		if !ok {
			continue
		}
		resp, err := rt.handler(ctx, params, req)
		if err != nil {
			r.logger.Error("route handler failed", zap.String("route", rt.pattern), zap.Error(err))
			return r.withCORS(Error(http.StatusInternalServerError))
		}
		if resp == nil {
			resp = &Response{StatusCode: http.StatusNoContent}
		}
		return r.withCORS(resp)
	}
	return r.withCORS(Error(http.StatusNotFound))
}

func (r *Router) withCORS(resp *Response) *Response {
	if !r.cors {
		return resp
	}
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Access-Control-Allow-Origin"] = "*"
	resp.Headers["Access-Control-Allow-Methods"] = "GET, POST, OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type"
	resp.Headers["Access-Control-Max-Age"] = "86400"
	return resp
}

func (rt *route) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(rt.segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range rt.segments {
		part := parts[i]
		if seg.param == "" {
			if part != seg.literal {
				return nil, false
			}
			continue
		}
		if !strings.HasSuffix(part, seg.suffix) || len(part) == len(seg.suffix) {
			return nil, false
		}
		params[seg.param] = strings.TrimSuffix(part, seg.suffix)
	}
	return params, true
}

func parsePattern(pattern string) []segment {
	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if !strings.HasPrefix(part, ":") {
			segments = append(segments, segment{literal: part})
			continue
		}
		name := part[1:]
		end := 0
		for end < len(name) && isParamChar(name[end]) {
			end++
		}
		segments = append(segments, segment{param: name[:end], suffix: name[end:]})
	}
	return segments
}

func isParamChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func joinPath(prefix, pattern string) string {
	return "/" + strings.Trim(strings.Trim(prefix, "/")+"/"+strings.Trim(pattern, "/"), "/")
}

// JSON builds a response with v marshaled as the body.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Error(http.StatusInternalServerError)
	}
	return &Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func OK(v any) *Response { return JSON(http.StatusOK, v) }

// Error builds a {"message": ...} response carrying the standard status text.
func Error(status int) *Response {
	return &Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       fmt.Sprintf(`{"message":%q}`, http.StatusText(status)),
	}
}
