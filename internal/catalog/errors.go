package catalog

import (
	"errors"
	"fmt"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httpclient"
)

var (
	// ErrTransport matches every failure to obtain a usable upstream response.
	ErrTransport = errors.New("catalog: transport failure")

	// ErrNotFound is returned when the upstream has no item with the given id.
	ErrNotFound = errors.New("catalog: item not found")
)

// TransportError reports a request that failed on every attempt because of
// network errors, timeouts or non-2xx statuses.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("catalog request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) hold.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// MalformedResponseError reports a response body that never decoded into
// the expected shape. It is retried like a transport failure.
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("catalog response from %s is malformed: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) hold.
func (e *MalformedResponseError) Is(target error) bool { return target == ErrTransport }

func classify(url string, err error) error {
	var decodeErr *httpclient.DecodeError
	if errors.As(err, &decodeErr) {
		return &MalformedResponseError{URL: url, Err: err}
	}
	return &TransportError{URL: url, Err: err}
}
