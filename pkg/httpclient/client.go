package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"time"
)

// Config holds HTTP client configuration
type Config struct {
	// Timeout bounds each attempt, including reading the body.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number before each retry.
	RetryBackoff    time.Duration
	MaxConnsPerHost int
}

// Envelope is the longest a single Fetch can take when every attempt runs
// to its timeout.
func (c Config) Envelope() time.Duration {
	retries := max(c.MaxRetries, 0)
	total := time.Duration(retries+1) * c.Timeout
	for attempt := 1; attempt <= retries; attempt++ {
		total += backoff(c.RetryBackoff, attempt)
	}
	return total
}

// DefaultConfig returns sensible defaults for HTTP client
func DefaultConfig() Config {
	return Config{
		Timeout:         18 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    800 * time.Millisecond,
		MaxConnsPerHost: 32,
	}
}

// ResponseHandler consumes a response inside the retry envelope. A returned
// error causes another attempt unless it is wrapped with Permanent.
type ResponseHandler func(resp *http.Response) error

// Fetcher executes a request inside a retry envelope.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request, handle ResponseHandler, opts ...FetchOption) error
}

// FetchOption tunes a single Fetch call.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	passStatus []int
}

// PassStatus hands responses with the given status codes to the handler
// instead of treating them as failures.
func PassStatus(codes ...int) FetchOption {
	return func(o *fetchOptions) {
		o.passStatus = append(o.passStatus, codes...)
	}
}

// Client wraps http.Client with retry logic and better defaults
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client with retry and connection pooling
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// Fetch sends req up to MaxRetries+1 times. Network errors, timeouts,
// unexpected statuses and handler errors are all retried the same way,
// waiting RetryBackoff*attempt between attempts. 2xx and 304 responses are
// passed to handle; the body is always closed by Fetch.
func (c *Client) Fetch(ctx context.Context, req *http.Request, handle ResponseHandler, opts ...FetchOption) error {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(c.config.RetryBackoff, attempt)); err != nil {
				return err
			}
		}
		attempts++

		lastErr = c.attempt(ctx, req, handle, o)
		if lastErr == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", req.Method, req.URL.Redacted(), attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, req *http.Request, handle ResponseHandler, o fetchOptions) error {
	resp, err := c.httpClient.Do(req.Clone(ctx))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode/100 == 2 ||
		resp.StatusCode == http.StatusNotModified ||
		slices.Contains(o.passStatus, resp.StatusCode)
	if !ok {
		return newStatusError(resp)
	}
	if handle == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return handle(resp)
}

// DecodeJSON returns a handler that decodes the whole response body into v.
// Undecodable bodies, trailing garbage included, surface as *DecodeError and
// are retried.
func DecodeJSON(v any) ResponseHandler {
	return func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		if err := json.Unmarshal(bytes.TrimSpace(body), v); err != nil {
			return &DecodeError{URL: resp.Request.URL.Redacted(), Err: err}
		}
		return nil
	}
}

// backoff is linear: base for the first retry, 2*base for the second, and so on.
func backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
