package usage

import (
	"testing"
	"time"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"pgregory.net/rapid"
)

// TestManager_ConsumeIsExactNeverClamped checks invariant 2 from
// SPEC_FULL.md §8 from the consumption side: post-hoc accounting never
// drops or clamps an increment, even once the counter is already over
// capacity — every unit consumed shows up in the counter, so the overshoot
// above `points` is bounded exactly by what callers actually admitted, not
// silently inflated or truncated by the limiter itself.
func TestManager_ConsumeIsExactNeverClamped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		points := rapid.Int64Range(1, 1000).Draw(rt, "points")
		calls := rapid.IntRange(1, 50).Draw(rt, "calls")
		perCall := rapid.Int64Range(1, 20).Draw(rt, "perCall")

		m := NewManager(nil)
		fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return fixed }
		m.LoadProviders([]gatewaytypes.Provider{
			providerWithLimits("p1", gatewaytypes.Limits{TokensPerMinute: float64(points)}),
		})

		var want int64
		for i := 0; i < calls; i++ {
			m.Consume("p1", "m1", int(perCall), 0, 0)
			want += perCall
		}

		snap := m.Snapshot()["p1"][TokensPerMinute]
		if snap.Consumed != want {
			rt.Fatalf("consumed %d does not equal the exact sum %d of everything admitted", snap.Consumed, want)
		}
		if want > points && m.IsUnderLimit("p1", "m1") {
			rt.Fatalf("limiter reports under-limit despite consumed(%d) > points(%d)", want, points)
		}
	})
}
