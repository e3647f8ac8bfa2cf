package service

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/errors"
)

// ErrSuperseded is returned by a search that a newer request for the same
// session replaced.
var ErrSuperseded = fmt.Errorf("%w: search superseded by a newer request", apperrors.ErrConflict)

type flight struct {
	cancel context.CancelCauseFunc
}

// Superseder keeps at most one live request per key. Beginning a request
// cancels the previous one for the same key with ErrSuperseded as cause.
type Superseder struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

// NewSuperseder creates an empty Superseder.
func NewSuperseder() *Superseder {
	return &Superseder{inflight: make(map[string]*flight)}
}

// Begin registers a request for key and returns its context. The returned
// func must be called when the request finishes.
func (s *Superseder) Begin(ctx context.Context, key string) (context.Context, func()) {
	if key == "" {
		return ctx, func() {}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	f := &flight{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.inflight[key] = f
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.inflight[key] == f {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel(nil)
	}
}

// Len returns the number of keys with a live request.
func (s *Superseder) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
