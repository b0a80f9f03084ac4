package router

import (
	"testing"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/BaSui01/agentflow/gateway/usage"
	"github.com/BaSui01/agentflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr(f float64) *float64 { return &f }

func noPricing(gatewaytypes.ProviderType, gatewaytypes.Model) (gatewaytypes.Pricing, bool) {
	return gatewaytypes.Pricing{}, false
}

func TestRouter_Select_NoProviderForModel(t *testing.T) {
	r := New(usage.NewManager(zap.NewNop()))
	_, _, err := r.Select(nil, "gpt-5", noPricing)
	require.Error(t, err)
	gwErr := err.(*types.Error)
	assert.Equal(t, types.ErrNoProviderForModel, gwErr.Code)
}

func TestRouter_Select_AllProvidersRateLimited(t *testing.T) {
	um := usage.NewManager(zap.NewNop())
	providers := []gatewaytypes.Provider{
		{
			ID:   "p1",
			Type: gatewaytypes.ProviderGroq,
			Models: []gatewaytypes.Model{{Name: "llama-70b"}},
			Limits: &gatewaytypes.Limits{RequestsPerMinute: 1},
		},
	}
	um.LoadProviders(providers)
	// Exhaust the one allowed request.
	um.Consume("p1", "llama-70b", 10, 10, 0)

	r := New(um)
	_, _, err := r.Select(providers, "llama-70b", noPricing)
	require.Error(t, err)
	gwErr := err.(*types.Error)
	assert.Equal(t, types.ErrAllProvidersRateLimited, gwErr.Code)
}

func TestRouter_Select_PrefersZeroCostCandidate(t *testing.T) {
	um := usage.NewManager(zap.NewNop())
	providers := []gatewaytypes.Provider{
		{ID: "paid", Type: gatewaytypes.ProviderOpenAI, Models: []gatewaytypes.Model{{Name: "shared-model"}}},
		{ID: "free", Type: gatewaytypes.ProviderOllama, Models: []gatewaytypes.Model{{Name: "shared-model"}}},
	}
	um.LoadProviders(providers)

	priceFor := func(pt gatewaytypes.ProviderType, m gatewaytypes.Model) (gatewaytypes.Pricing, bool) {
		if pt == gatewaytypes.ProviderOllama {
			return gatewaytypes.Pricing{InputCostPerMillionTokens: ptr(0), OutputCostPerMillionTokens: ptr(0)}, true
		}
		return gatewaytypes.Pricing{InputCostPerMillionTokens: ptr(5), OutputCostPerMillionTokens: ptr(15)}, true
	}

	r := New(um)
	for i := 0; i < 20; i++ {
		p, _, err := r.Select(providers, "shared-model", priceFor)
		require.NoError(t, err)
		assert.Equal(t, "free", p.ID)
	}
}

func TestRouter_Select_UsesMappedName(t *testing.T) {
	um := usage.NewManager(zap.NewNop())
	providers := []gatewaytypes.Provider{
		{ID: "p1", Type: gatewaytypes.ProviderAnthropic, Models: []gatewaytypes.Model{
			{Name: "claude-sonnet-4-20250514", MappedName: "claude-sonnet"},
		}},
	}
	um.LoadProviders(providers)

	r := New(um)
	p, m, err := r.Select(providers, "claude-sonnet", noPricing)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "claude-sonnet-4-20250514", m.Name)
}

func TestRouter_Select_UnknownPricingIsNotZeroCost(t *testing.T) {
	um := usage.NewManager(zap.NewNop())
	providers := []gatewaytypes.Provider{
		{ID: "unknown-pricing", Type: gatewaytypes.ProviderCustom, Models: []gatewaytypes.Model{{Name: "m"}}},
	}
	um.LoadProviders(providers)

	r := New(um)
	// noPricing reports !ok, which must NOT be treated as zero-cost; the
	// single candidate is still selected via the admitted-pool fallback.
	p, _, err := r.Select(providers, "m", noPricing)
	require.NoError(t, err)
	assert.Equal(t, "unknown-pricing", p.ID)
}
