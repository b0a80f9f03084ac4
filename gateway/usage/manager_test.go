package usage

import (
	"testing"
	"time"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerWithLimits(id string, l gatewaytypes.Limits) gatewaytypes.Provider {
	return gatewaytypes.Provider{ID: id, Type: gatewaytypes.ProviderOpenAICompatible, Limits: &l}
}

func TestManager_IsUnderLimit_RequestBased(t *testing.T) {
	m := NewManager(nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 1}),
	})

	require.True(t, m.IsUnderLimit("p1", "m1"))
	m.Consume("p1", "m1", 0, 0, 0)
	assert.False(t, m.IsUnderLimit("p1", "m1"))
}

func TestManager_IsUnderLimit_IgnoresCostLimiters(t *testing.T) {
	m := NewManager(nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{CostPerDay: 0.01}),
	})
	m.Consume("p1", "m1", 0, 0, 1.0) // costs far more than the 0.01 cap
	// Cost limiters are never consulted pre-flight.
	assert.True(t, m.IsUnderLimit("p1", "m1"))
}

func TestManager_Consume_NeverPartial_PersistsOvershoot(t *testing.T) {
	m := NewManager(nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{TokensPerMinute: 10}),
	})
	m.Consume("p1", "m1", 8, 8, 0) // 16 tokens against a cap of 10
	snap := m.Snapshot()
	got := snap["p1"][TokensPerMinute]
	assert.Equal(t, int64(16), got.Consumed)
	assert.Equal(t, int64(10), got.Points)
}

func TestManager_WindowRollsOverAfterExpiry(t *testing.T) {
	m := NewManager(nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	m.now = func() time.Time { return now }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 1}),
	})
	m.Consume("p1", "m1", 0, 0, 0)
	assert.False(t, m.IsUnderLimit("p1", "m1"))

	now = start.Add(61 * time.Second)
	assert.True(t, m.IsUnderLimit("p1", "m1"))
}

func TestManager_Reconcile_PreservesUnchangedLimiter(t *testing.T) {
	m := NewManager(nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 5}),
	})
	m.Consume("p1", "m1", 0, 0, 0)
	m.Consume("p1", "m1", 0, 0, 0)

	// Reload with the identical limits shape for p1, plus a brand new p2.
	m.Reconcile([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 5}),
		providerWithLimits("p2", gatewaytypes.Limits{RequestsPerMinute: 5}),
	})

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["p1"][RequestsPerMinute].Consumed, "unchanged limiter must keep its counter")
	assert.Equal(t, int64(0), snap["p2"][RequestsPerMinute].Consumed)
}

func TestManager_Reconcile_DiscardsOrphanedProvider(t *testing.T) {
	m := NewManager(nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 5}),
	})
	m.Reconcile(nil)
	assert.True(t, m.IsUnderLimit("p1", "m1"), "orphaned provider's limiter is gone, so nothing blocks it")
}

func TestManager_Reconcile_ResetsLimiterWhenPointsChange(t *testing.T) {
	m := NewManager(nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.LoadProviders([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 1}),
	})
	m.Consume("p1", "m1", 0, 0, 0)

	m.Reconcile([]gatewaytypes.Provider{
		providerWithLimits("p1", gatewaytypes.Limits{RequestsPerMinute: 5}),
	})
	assert.True(t, m.IsUnderLimit("p1", "m1"), "changed (points,duration) identity resets the counter")
}
