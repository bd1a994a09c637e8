// Package rediscache backs the page cache with Redis keys "<partition>:<key>:<subkey>".
package rediscache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/favplaces/internal/cache"
	"github.com/mohammed-shakir/favplaces/internal/cache/keys"
	"github.com/mohammed-shakir/favplaces/internal/cache/redisstore"
	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/observability"
	"github.com/mohammed-shakir/favplaces/internal/hotness/expdecay"
	"github.com/mohammed-shakir/favplaces/pkg/adaptive"
	adaptSimple "github.com/mohammed-shakir/favplaces/pkg/adaptive/simple"
)

func init() {
	cache.Register("redis", newFromConfig)
}

func newFromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (cache.Store, error) {
	rc, err := redisstore.New(ctx, cfg.RedisAddr, redisstore.WithOpTimeout(cfg.CacheOpTimeout))
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	policy := adaptive.Static(cfg.CacheTTLDefault)
	if cfg.AdaptiveEnabled {
		policy = adaptive.NewPolicy(
			expdecay.New(cfg.HotHalfLife),
			adaptSimple.New(adaptSimple.Config{
				Threshold: cfg.HotThreshold,
				TTLCold:   cfg.AdaptiveTTLCold,
				TTLWarm:   cfg.AdaptiveTTLWarm,
				TTLHot:    cfg.AdaptiveTTLHot,
			}),
			cfg.CacheTTLDefault,
		)
	}
	logger.Info("page cache ready",
		"driver", "redis",
		"addr", cfg.RedisAddr,
		"partition", cfg.RedisPartition,
		"adaptive", cfg.AdaptiveEnabled)
	return New(rc, cfg.RedisPartition, cfg.CacheOpTimeout, policy), nil
}

type Adapter struct {
	cli       *redisstore.Client
	partition string
	timeout   time.Duration
	policy    *adaptive.Policy
}

var _ cache.Store = (*Adapter)(nil)

func New(cli *redisstore.Client, partition string, timeout time.Duration, policy *adaptive.Policy) *Adapter {
	return &Adapter{cli: cli, partition: partition, timeout: timeout, policy: policy}
}

// returns context with timeout if set
func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Adapter) Get(ctx context.Context, key, subkey string) ([]byte, bool, error) {
	if key == keys.BaseFingerprint(key) {
		a.policy.Touch(key)
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	v, found, err := a.cli.Get(ctx, keys.Compose(a.partition, key, subkey))
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return v, found, nil
}

func (a *Adapter) Set(ctx context.Context, key, subkey string, val []byte) error {
	d := a.policy.Decide(keys.BaseFingerprint(key))
	observability.IncTTLTier(string(d.Tier))

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := a.cli.Set(ctx, keys.Compose(a.partition, key, subkey), val, d.TTL); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.cli.Ping(ctx)
}
