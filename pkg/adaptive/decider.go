// Package adaptive chooses page cache lifetimes from query hotness.
package adaptive

import "time"

type HotnessView interface {
	Score(key string) float64
}

type Tier string

const (
	TierCold Tier = "cold"
	TierWarm Tier = "warm"
	TierHot  Tier = "hot"
)

type Decision struct {
	Tier Tier
	TTL  time.Duration
}

type Decider interface {
	Decide(key string, view HotnessView) Decision
}
