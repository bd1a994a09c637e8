package adaptive

import (
	"time"

	"github.com/mohammed-shakir/favplaces/internal/hotness"
)

// Policy records reads per key and resolves the TTL for writes. A nil decider
// always yields the fallback TTL.
type Policy struct {
	tracker  hotness.Interface
	decider  Decider
	fallback time.Duration
}

func NewPolicy(tracker hotness.Interface, decider Decider, fallback time.Duration) *Policy {
	return &Policy{tracker: tracker, decider: decider, fallback: fallback}
}

// Static returns a policy with a fixed TTL and no tracking.
func Static(ttl time.Duration) *Policy {
	return &Policy{fallback: ttl}
}

func (p *Policy) Touch(key string) {
	if p == nil || p.tracker == nil {
		return
	}
	p.tracker.Inc(key)
}

func (p *Policy) Decide(key string) Decision {
	if p == nil {
		return Decision{Tier: TierWarm}
	}
	if p.decider == nil || p.tracker == nil {
		return Decision{Tier: TierWarm, TTL: p.fallback}
	}
	d := p.decider.Decide(key, p.tracker)
	if d.TTL <= 0 {
		d.TTL = p.fallback
	}
	return d
}
