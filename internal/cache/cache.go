// Package cache defines the page cache used by search: a key/subkey store with
// two logical tables, result pages and continuation tokens.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mohammed-shakir/favplaces/internal/core/config"
)

// Store is a best-effort key/subkey store. Entries may vanish at any time.
type Store interface {
	Get(ctx context.Context, key, subkey string) (val []byte, found bool, err error)
	Set(ctx context.Context, key, subkey string, val []byte) error
}

type Factory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Store, error)

const fallbackDriver = "memory"

var (
	regMu sync.RWMutex
	reg   = map[string]Factory{}
)

func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[name] = f
}

func Drivers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func New(ctx context.Context, name string, cfg config.Config, logger *slog.Logger) (Store, error) {
	regMu.RLock()
	f, ok := reg[name]
	fb, fbOK := reg[fallbackDriver]
	regMu.RUnlock()

	if ok {
		return f(ctx, cfg, logger)
	}
	if fbOK {
		logger.Warn("unknown cache driver; falling back", "driver", name, "fallback", fallbackDriver)
		return fb(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("no factory for cache driver %q and no %s driver registered", name, fallbackDriver)
}
