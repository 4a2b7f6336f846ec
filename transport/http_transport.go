package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultHTTPTimeout bounds a request when neither the ctx nor the caller set a limit.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPTransport POSTs each request payload to a fixed endpoint and returns the body.
type HTTPTransport struct {
	endpoint string
	timeout  time.Duration
	client   *fasthttp.Client
	headers  map[string]string
}

type HTTPOption func(*HTTPTransport)

// WithHTTPTimeout sets the per-request timeout. A ctx deadline that expires sooner wins.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTPTransport) {
		t.headers[key] = value
	}
}

func WithHTTPClient(c *fasthttp.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

func NewHTTPTransport(endpoint string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint: endpoint,
		timeout:  DefaultHTTPTimeout,
		client:   &fasthttp.Client{},
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Send(ctx context.Context, request []byte) ([]byte, error) {
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(t.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	req.SetBody(request)

	if err := t.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("post %s: %w", t.endpoint, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("post %s: %w", t.endpoint, err)
	}

	// resp is released on return, so the body must be copied out.
	body := append([]byte(nil), resp.Body()...)

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		// Servers often pair a 4xx/5xx with a JSON-RPC error body. Let the envelope
		// decoder report it as a remote error.
		if looksLikeJSONObject(body) {
			return body, nil
		}
		return nil, &StatusError{StatusCode: status, Body: body}
	}
	return body, nil
}

// StatusError is returned when the server answers with a non-2xx status and no JSON body.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.StatusCode)
}

func looksLikeJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 1 && b[0] == '{' && b[len(b)-1] == '}'
}
