// Package transport executes authenticated HTTP requests against a
// provider with mandatory dual timeouts, bounded retries, and redacted
// diagnostics.
//
// Raw unredacted response text never leaves this package: every header
// snapshot, error message, and event payload passes through
// [github.com/Fayeblade1488/venicebridge/redact] first.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/redact"
	"github.com/Fayeblade1488/venicebridge/retry"
)

const defaultUserAgent = "venicebridge/1.0"

// errorBodyLimit caps how much of an error body is read for diagnostics.
const errorBodyLimit = 8 << 10

// Request describes one logical call against the provider.
type Request struct {
	Method string
	Path   string // joined onto the provider base URL
	Body   any    // JSON-marshaled when non-nil
	Accept string // defaults to application/json
}

// RawResponse is a fully read successful response.
type RawResponse struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string

	// RequestID is the server's x-request-id when present, otherwise the
	// locally generated correlation id for this call.
	RequestID string
}

// Client executes requests for a single provider. It is safe for
// concurrent use; each call owns its own retry state.
type Client struct {
	cfg        venicebridge.ProviderConfig
	httpClient *http.Client
	retryCfg   retry.Config
	events     chan<- Event
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// WithEvents sets an optional channel for transport diagnostics.
// Events are sent non-blocking; if the channel is full, events are dropped.
func WithEvents(ch chan<- Event) Option {
	return func(c *Client) { c.events = ch }
}

// WithHTTPClient replaces the underlying HTTP client. Intended for tests;
// the replacement must still enforce its own timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a transport for the provider. It fails fast when either
// timeout is unset: a call without both bounds could hang indefinitely.
func NewClient(cfg venicebridge.ProviderConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		retryCfg:  retry.DefaultConfig(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
		c.httpClient = &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.ConnectTimeout,
				ResponseHeaderTimeout: cfg.ReadTimeout,
			},
		}
	}
	return c, nil
}

// Provider returns the provider configuration this client was built from.
func (c *Client) Provider() venicebridge.ProviderConfig { return c.cfg }

// Do executes the request with the client's retry policy and returns the
// fully read response. Transient failures (429, 5xx, network errors) are
// retried with exponential backoff; other HTTP errors surface immediately
// as a permanent transport error.
func (c *Client) Do(ctx context.Context, req Request) (*RawResponse, error) {
	body, err := marshalBody(req.Body)
	if err != nil {
		return nil, venicebridge.NewValidationError("body", err.Error())
	}

	correlationID := uuid.NewString()
	url := c.cfg.Endpoint(req.Path)
	start := time.Now()
	c.emit(Event{Type: EventRequestStart, Method: req.Method, URL: url, CorrelationID: correlationID})

	attempts := 0
	retryEvents := c.forwardRetryEvents(req.Method, url, correlationID)
	resp, err := retry.DoWithEvents(ctx, c.retryCfg, retryEvents, func() (*RawResponse, error) {
		attempts++
		return c.attempt(ctx, req.Method, url, req.Accept, body, correlationID)
	})
	if retryEvents != nil {
		close(retryEvents)
	}

	if err != nil {
		err = c.finalError(err, attempts)
		c.emit(Event{
			Type:          EventRequestError,
			Method:        req.Method,
			URL:           url,
			CorrelationID: correlationID,
			Attempts:      attempts,
			Duration:      time.Since(start),
			Error:         err,
		})
		return nil, err
	}

	c.emit(Event{
		Type:          EventRequestComplete,
		Method:        req.Method,
		URL:           url,
		CorrelationID: correlationID,
		Attempts:      attempts,
		Duration:      time.Since(start),
		StatusCode:    resp.StatusCode,
		RequestID:     resp.RequestID,
	})
	return resp, nil
}

// Stream is Do for responses that should not be buffered: the caller
// receives the open response body and must close it. Retries cover the
// request and status check only, never a partially consumed body.
func (c *Client) Stream(ctx context.Context, req Request) (*RawResponse, io.ReadCloser, error) {
	body, err := marshalBody(req.Body)
	if err != nil {
		return nil, nil, venicebridge.NewValidationError("body", err.Error())
	}

	correlationID := uuid.NewString()
	url := c.cfg.Endpoint(req.Path)
	start := time.Now()
	c.emit(Event{Type: EventRequestStart, Method: req.Method, URL: url, CorrelationID: correlationID})

	type streamed struct {
		meta *RawResponse
		body io.ReadCloser
	}

	attempts := 0
	retryEvents := c.forwardRetryEvents(req.Method, url, correlationID)
	res, err := retry.DoWithEvents(ctx, c.retryCfg, retryEvents, func() (streamed, error) {
		attempts++
		meta, rc, err := c.attemptStream(ctx, req.Method, url, req.Accept, body, correlationID)
		return streamed{meta, rc}, err
	})
	if retryEvents != nil {
		close(retryEvents)
	}
	if err != nil {
		err = c.finalError(err, attempts)
		c.emit(Event{
			Type:          EventRequestError,
			Method:        req.Method,
			URL:           url,
			CorrelationID: correlationID,
			Attempts:      attempts,
			Duration:      time.Since(start),
			Error:         err,
		})
		return nil, nil, err
	}

	c.emit(Event{
		Type:          EventRequestComplete,
		Method:        req.Method,
		URL:           url,
		CorrelationID: correlationID,
		Attempts:      attempts,
		Duration:      time.Since(start),
		StatusCode:    res.meta.StatusCode,
		RequestID:     res.meta.RequestID,
	})
	return res.meta, res.body, nil
}

// attempt performs a single HTTP exchange and buffers the body.
func (c *Client) attempt(ctx context.Context, method, url, accept string, body []byte, correlationID string) (*RawResponse, error) {
	meta, rc, err := c.attemptStream(ctx, method, url, accept, body, correlationID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, venicebridge.NewTransportError("read response body", meta.StatusCode, err)
	}
	meta.Body = data
	return meta, nil
}

// attemptStream performs a single HTTP exchange, handing the unread body
// back to the caller on success.
func (c *Client) attemptStream(ctx context.Context, method, url, accept string, body []byte, correlationID string) (*RawResponse, io.ReadCloser, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, venicebridge.NewPermanentTransportError("build request", 0, err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AuthKey)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Correlation-Id", correlationID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network-level failure; retry.IsTransient classifies it.
		return nil, nil, err
	}

	requestID := serverRequestID(resp.Header, correlationID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, nil, c.statusError(resp, requestID)
	}

	meta := &RawResponse{
		StatusCode:  resp.StatusCode,
		Header:      redact.Headers(resp.Header),
		ContentType: resp.Header.Get("Content-Type"),
		RequestID:   requestID,
	}
	return meta, resp.Body, nil
}

// statusError converts a non-2xx response into a categorized transport
// error. The body snippet is redacted before it is attached anywhere.
func (c *Client) statusError(resp *http.Response, requestID string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	msg := redact.Redact(fmt.Sprintf("%s returned %d (request_id=%s): %s",
		c.cfg.ID, resp.StatusCode, requestID, strings.TrimSpace(string(snippet))))

	if retry.IsTransientStatusCode(resp.StatusCode) {
		if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
			return venicebridge.NewTransportErrorWithRetry(msg, resp.StatusCode, ra, nil)
		}
		return venicebridge.NewTransportError(msg, resp.StatusCode, nil)
	}
	return venicebridge.NewPermanentTransportError(msg, resp.StatusCode, nil)
}

// finalError normalizes the terminal error of a call, recording the
// attempt count and making sure the text is redacted.
func (c *Client) finalError(err error, attempts int) error {
	if ve, ok := err.(*venicebridge.Error); ok {
		ve.Attempts = attempts
		return ve
	}
	wrapped := venicebridge.NewTransportError(redact.Redact(fmt.Sprintf("%s request failed", c.cfg.ID)), 0, err)
	wrapped.Attempts = attempts
	if !retry.IsTransient(err) {
		wrapped.Cat = venicebridge.ErrorPermanent
	}
	return wrapped
}

// forwardRetryEvents bridges retry events onto the transport event channel.
func (c *Client) forwardRetryEvents(method, url, correlationID string) chan retry.Event {
	if c.events == nil {
		return nil
	}
	ch := make(chan retry.Event, 16)
	go func() {
		for rev := range ch {
			rev := rev
			c.emit(Event{
				Type:          EventRetry,
				Method:        method,
				URL:           url,
				CorrelationID: correlationID,
				RetryEvent:    &rev,
			})
		}
	}()
	return ch
}

func (c *Client) emit(ev Event) {
	emit(c.events, ev)
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func serverRequestID(h http.Header, fallback string) string {
	if id := h.Get("x-request-id"); id != "" {
		return id
	}
	return fallback
}

// parseRetryAfter parses a Retry-After header value, either delay-seconds
// or an HTTP-date. Returns 0 when absent or unparseable.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
