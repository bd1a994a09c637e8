// Package redisstore is the thin Redis client behind the page cache and the
// session table. Every call is timed into the cache op metrics.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/favplaces/internal/core/observability"
)

type Option func(*redis.Options)

// WithOpTimeout bounds socket reads and writes; the adapters also bound each
// call with their own context deadline.
func WithOpTimeout(d time.Duration) Option {
	return func(o *redis.Options) {
		if d > 0 {
			o.ReadTimeout = d
			o.WriteTimeout = d
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

// New connects to addr and fails unless the server answers PING.
func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	c := &Client{rdb: redis.NewClient(ro)}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

func timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp(op, nil, time.Since(start).Seconds())
		return err
	}
	observability.ObserveCacheOp(op, err, time.Since(start).Seconds())
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	if err := timed("ping", func() error { return c.rdb.Ping(ctx).Err() }); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get returns the value stored at key; found is false for a missing key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var b []byte
	err := timed("get", func() (err error) {
		b, err = c.rdb.Get(ctx, key).Bytes()
		return err
	})
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return b, true, nil
}

// Set stores val at key; ttl <= 0 keeps the key without expiry.
func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ttl = max(ttl, 0)
	if err := timed("set", func() error { return c.rdb.Set(ctx, key, val, ttl).Err() }); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
