// Package cache defines the revalidating cache port used for upstream data
// that carries an entity tag.
package cache

import (
	"context"
	"time"
)

// Entry is a cached value together with the token needed to revalidate it
// upstream.
type Entry struct {
	Value    []byte
	Token    string
	StoredAt time.Time
}

// Store is a key-value cache of entries. Get reports found=false for a
// missing or expired key; err is reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)
	Put(ctx context.Context, key string, entry Entry) error
}
