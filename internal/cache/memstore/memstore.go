// Package memstore is an in-process page cache store used in tests and single-node runs.
package memstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/favplaces/internal/cache"
	"github.com/mohammed-shakir/favplaces/internal/core/config"
)

func init() {
	cache.Register("memory", func(_ context.Context, cfg config.Config, _ *slog.Logger) (cache.Store, error) {
		return New(cfg.CacheTTLDefault, WithMaxEntries(cfg.CacheMaxEntries)), nil
	})
}

// DefaultMaxEntries bounds a store built without WithMaxEntries.
const DefaultMaxEntries = 50_000

type Option func(*options)

type options struct {
	maxEntries int
}

// WithMaxEntries caps the number of entries; the least recently used entry
// is evicted first. n <= 0 keeps the default.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// Store keeps every entry for the same ttl. Expired entries are purged in
// the background whether or not they are read again.
type Store struct {
	lru *expirable.LRU[string, []byte]
}

var _ cache.Store = (*Store)(nil)

// New returns an empty store; ttl <= 0 disables expiry.
func New(ttl time.Duration, opts ...Option) *Store {
	o := options{maxEntries: DefaultMaxEntries}
	for _, f := range opts {
		f(&o)
	}
	return &Store{lru: expirable.NewLRU[string, []byte](o.maxEntries, nil, max(ttl, 0))}
}

func compose(key, subkey string) string {
	return key + ":" + subkey
}

func (s *Store) Get(_ context.Context, key, subkey string) ([]byte, bool, error) {
	v, ok := s.lru.Get(compose(key, subkey))
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key, subkey string, val []byte) error {
	s.lru.Add(compose(key, subkey), append([]byte(nil), val...))
	return nil
}

// Delete drops one entry; used to simulate eviction.
func (s *Store) Delete(key, subkey string) {
	s.lru.Remove(compose(key, subkey))
}

func (s *Store) Len() int {
	return s.lru.Len()
}
