package simple

import (
	"time"

	"github.com/mohammed-shakir/favplaces/pkg/adaptive"
)

type Config struct {
	Threshold float64
	TTLCold   time.Duration
	TTLWarm   time.Duration
	TTLHot    time.Duration
}

// SimpleDecider tiers keys by score: >= 4x threshold is hot, >= threshold warm, else cold.
type SimpleDecider struct {
	cfg Config
}

var _ adaptive.Decider = (*SimpleDecider)(nil)

func New(cfg Config) *SimpleDecider {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 1
	}
	return &SimpleDecider{cfg: cfg}
}

func (d *SimpleDecider) Decide(key string, view adaptive.HotnessView) adaptive.Decision {
	score := 0.0
	if view != nil {
		score = view.Score(key)
	}

	switch {
	case score >= 4*d.cfg.Threshold && d.cfg.TTLHot > 0:
		return adaptive.Decision{Tier: adaptive.TierHot, TTL: d.cfg.TTLHot}
	case score >= d.cfg.Threshold && d.cfg.TTLWarm > 0:
		return adaptive.Decision{Tier: adaptive.TierWarm, TTL: d.cfg.TTLWarm}
	default:
		return adaptive.Decision{Tier: adaptive.TierCold, TTL: d.cfg.TTLCold}
	}
}
