package simple

import (
	"testing"
	"time"

	"github.com/mohammed-shakir/favplaces/internal/hotness/expdecay"
	"github.com/mohammed-shakir/favplaces/pkg/adaptive"
)

type mapHot map[string]float64

func (m mapHot) Score(k string) float64 { return m[k] }

func cfg() Config {
	return Config{Threshold: 10, TTLCold: time.Minute, TTLWarm: 5 * time.Minute, TTLHot: time.Hour}
}

func TestDecide_Tiers(t *testing.T) {
	d := New(cfg())
	view := mapHot{"cold": 3, "warm": 10, "hot": 40}

	cases := map[string]adaptive.Decision{
		"cold":    {Tier: adaptive.TierCold, TTL: time.Minute},
		"warm":    {Tier: adaptive.TierWarm, TTL: 5 * time.Minute},
		"hot":     {Tier: adaptive.TierHot, TTL: time.Hour},
		"missing": {Tier: adaptive.TierCold, TTL: time.Minute},
	}
	for key, want := range cases {
		if got := d.Decide(key, view); got != want {
			t.Fatalf("%s: got %+v want %+v", key, got, want)
		}
	}
}

func TestDecide_NilViewIsCold(t *testing.T) {
	if got := New(cfg()).Decide("x", nil); got.Tier != adaptive.TierCold {
		t.Fatalf("tier=%s want cold", got.Tier)
	}
}

func TestPolicy_TouchPromotesKey(t *testing.T) {
	frozen := time.Unix(1_700_000_000, 0)
	tr := expdecay.New(time.Hour, expdecay.WithClock(func() time.Time { return frozen }))
	c := cfg()
	c.Threshold = 2
	p := adaptive.NewPolicy(tr, New(c), 30*time.Second)

	if got := p.Decide("fp"); got.Tier != adaptive.TierCold {
		t.Fatalf("untouched key tier=%s want cold", got.Tier)
	}
	for range 7 {
		p.Touch("fp")
	}
	if got := p.Decide("fp"); got.Tier != adaptive.TierWarm {
		t.Fatalf("score 7 tier=%s want warm", got.Tier)
	}
	p.Touch("fp")
	if got := p.Decide("fp"); got.Tier != adaptive.TierHot || got.TTL != time.Hour {
		t.Fatalf("got %+v want hot/1h", got)
	}
}

func TestPolicy_StaticUsesFallback(t *testing.T) {
	p := adaptive.Static(90 * time.Second)
	p.Touch("fp")
	if got := p.Decide("fp"); got.TTL != 90*time.Second {
		t.Fatalf("ttl=%s want 90s", got.TTL)
	}
}
