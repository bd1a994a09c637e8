// Package expdecay scores query fingerprints with exponentially decaying
// request counts.
package expdecay

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/favplaces/internal/hotness"
)

const (
	numShards = 64
	// scores below this are treated as forgotten when a shard is swept
	forgetBelow = 0.05
	defaultCap  = 100_000
)

// Tracker is safe for concurrent use. Fingerprints embed coordinates, so the
// key space is unbounded; each shard is swept of cold keys once it grows past
// its share of the capacity.
type Tracker struct {
	halfLife float64 // seconds
	shardCap int
	now      func() time.Time
	shards   [numShards]shard
}

type shard struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	score float64
	at    time.Time
}

var _ hotness.Interface = (*Tracker)(nil)

type Option func(*Tracker)

// WithClock replaces time.Now; tests use it to step time.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithCapacity sets the approximate number of fingerprints kept.
func WithCapacity(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.shardCap = max(n/numShards, 1)
		}
	}
}

func New(halfLife time.Duration, opts ...Option) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{
		halfLife: halfLife.Seconds(),
		shardCap: defaultCap / numShards,
		now:      time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	for i := range t.shards {
		t.shards[i].m = make(map[string]entry)
	}
	return t
}

func (t *Tracker) Inc(key string) {
	if key == "" {
		return
	}
	s := t.pick(key)
	now := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok && len(s.m) >= t.shardCap {
		t.sweep(s, now)
	}
	s.m[key] = entry{score: t.decayed(e, now) + 1, at: now}
}

func (t *Tracker) Score(key string) float64 {
	if key == "" {
		return 0
	}
	s := t.pick(key)
	s.mu.Lock()
	e, ok := s.m[key]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return t.decayed(e, t.now())
}

func (t *Tracker) Reset(keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		s := t.pick(k)
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
	}
}

// Size counts tracked keys across shards.
func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		total += len(t.shards[i].m)
		t.shards[i].mu.Unlock()
	}
	return total
}

// sweep drops cold keys; if none are cold it drops the coldest one so the
// shard never exceeds its cap. Caller holds s.mu.
func (t *Tracker) sweep(s *shard, now time.Time) {
	coldest, coldScore := "", math.Inf(1)
	removed := false
	for k, e := range s.m {
		sc := t.decayed(e, now)
		if sc < forgetBelow {
			delete(s.m, k)
			removed = true
			continue
		}
		if sc < coldScore {
			coldest, coldScore = k, sc
		}
	}
	if !removed && coldest != "" {
		delete(s.m, coldest)
	}
}

// score * 2^(-dt/halfLife)
func (t *Tracker) decayed(e entry, now time.Time) float64 {
	dt := now.Sub(e.at).Seconds()
	if e.score == 0 || dt <= 0 {
		return e.score
	}
	return e.score * math.Exp2(-dt/t.halfLife)
}

func (t *Tracker) pick(key string) *shard {
	return &t.shards[xxhash.Sum64String(key)&(numShards-1)]
}
