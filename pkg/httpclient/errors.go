package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept for diagnostics.
const maxErrorBody = 512

// StatusError reports a response whose status was not accepted.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func newStatusError(resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	url := ""
	if resp.Request != nil {
		url = resp.Request.URL.Redacted()
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Body:       strings.TrimSpace(string(b)),
	}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// IsServerError reports whether the upstream failed on its side.
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= 500
}

// DecodeError reports a 2xx response whose body could not be decoded.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Fetch returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
