package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/dmitrymomot/cudatel/core/logger"
)

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	// URL is the final request URL after redirects.
	URL  *url.URL
	Body []byte
}

// Transport executes request descriptors.
type Transport interface {
	Do(ctx context.Context, d Descriptor) (*Response, error)
}

const defaultMaxBodySize = 10 << 20

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	client      *http.Client
	logger      *slog.Logger
	maxBodySize int64
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the pooled go-cleanhttp client.
func WithHTTPClient(c *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTransportLogger sets the logger for request traces.
func WithTransportLogger(l *slog.Logger) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMaxBodySize limits how many response bytes are read.
func WithMaxBodySize(n int64) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBodySize = n
		}
	}
}

// NewHTTPTransport returns a transport on a pooled go-cleanhttp client.
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		client:      cleanhttp.DefaultPooledClient(),
		logger:      logger.Discard(),
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends the request. Network errors and 5xx responses are ErrTransport.
func (t *HTTPTransport) Do(ctx context.Context, d Descriptor) (*Response, error) {
	var body io.Reader
	if d.Form != nil {
		body = strings.NewReader(d.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}
	for k, vs := range d.Header {
		if http.CanonicalHeaderKey(k) == "Host" {
			req.Host = vs[0]
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if d.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.DebugContext(ctx, "request failed",
			logger.Method(d.Method),
			logger.Path(req.URL.Path),
			logger.Elapsed(start),
			logger.Error(err))
		return nil, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize))
	if err != nil {
		return nil, errors.Join(ErrTransport, fmt.Errorf("read body: %w", err))
	}

	t.logger.DebugContext(ctx, "request completed",
		logger.Method(d.Method),
		logger.Path(req.URL.Path),
		logger.StatusCode(resp.StatusCode),
		logger.Elapsed(start))

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.Join(ErrTransport, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        final,
		Body:       data,
	}, nil
}
