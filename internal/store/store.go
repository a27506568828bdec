// Package store is the persisted key-value store used for tab-scoped session
// flags and per-admin markers. Redis backs it in production; MemoryStore keeps
// local development free of a Redis dependency.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key does not exist or has expired.
var ErrMiss = errors.New("store: key not found")

// Store is a string key-value store with optional TTLs. A zero TTL means the
// key never expires. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
	Close() error
}

// Namespaced scopes every key of an underlying store under a prefix.
type Namespaced struct {
	inner  Store
	prefix string
}

// Namespace returns a view of s where every key is stored as prefix+key.
func Namespace(s Store, prefix string) *Namespaced {
	return &Namespaced{inner: s, prefix: prefix}
}

func (n *Namespaced) Prefix() string { return n.prefix }

func (n *Namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return n.inner.Set(ctx, n.prefix+key, value, ttl)
}

func (n *Namespaced) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.prefix + k
	}
	return n.inner.Delete(ctx, full...)
}

func (n *Namespaced) DeletePrefix(ctx context.Context, prefix string) error {
	return n.inner.DeletePrefix(ctx, n.prefix+prefix)
}

// Clear removes every key in the namespace.
func (n *Namespaced) Clear(ctx context.Context) error {
	return n.inner.DeletePrefix(ctx, n.prefix)
}

func (n *Namespaced) Ping(ctx context.Context) error { return n.inner.Ping(ctx) }

// Close is a no-op; the underlying store is owned by its creator.
func (n *Namespaced) Close() error { return nil }
