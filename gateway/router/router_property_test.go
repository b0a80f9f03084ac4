package router

import (
	"testing"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/BaSui01/agentflow/gateway/usage"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

var propertyTestProviderTypes = []gatewaytypes.ProviderType{
	gatewaytypes.ProviderOpenAI,
	gatewaytypes.ProviderGroq,
	gatewaytypes.ProviderOllama,
	gatewaytypes.ProviderTogetherAI,
}

// TestRouter_Select_NeverPicksRateLimitedOrNonZeroCostWhenZeroCostAdmitted
// draws a random mix of admitted/rate-limited, zero-cost/paid providers (cost
// determined by ProviderType, as a real PriceCatalog would key it) and
// checks the Router's two selection invariants hold for every draw: a
// rate-limited candidate is never returned, and whenever at least one
// admitted candidate is zero-cost, only a zero-cost candidate is returned.
func TestRouter_Select_NeverPicksRateLimitedOrNonZeroCostWhenZeroCostAdmitted(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")

		zeroCostTypes := make(map[gatewaytypes.ProviderType]bool)
		for _, pt := range propertyTestProviderTypes {
			zeroCostTypes[pt] = rapid.Bool().Draw(rt, "zero_"+string(pt))
		}
		priceFor := func(pt gatewaytypes.ProviderType, _ gatewaytypes.Model) (gatewaytypes.Pricing, bool) {
			zero := 0.0
			nonzero := 3.0
			if zeroCostTypes[pt] {
				return gatewaytypes.Pricing{InputCostPerMillionTokens: &zero, OutputCostPerMillionTokens: &zero}, true
			}
			return gatewaytypes.Pricing{InputCostPerMillionTokens: &nonzero, OutputCostPerMillionTokens: &zero}, true
		}

		um := usage.NewManager(zap.NewNop())
		providers := make([]gatewaytypes.Provider, n)
		rateLimited := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			id := rapid.StringMatching(`p[0-9]{3,6}`).Draw(rt, "id")
			pt := propertyTestProviderTypes[rapid.IntRange(0, len(propertyTestProviderTypes)-1).Draw(rt, "pt")]
			limited := rapid.Bool().Draw(rt, "limited")
			rateLimited[id] = limited

			limits := &gatewaytypes.Limits{RequestsPerMinute: 1_000_000}
			if limited {
				limits.RequestsPerMinute = 1
			}
			providers[i] = gatewaytypes.Provider{
				ID:     id,
				Type:   pt,
				Models: []gatewaytypes.Model{{Name: "shared"}},
				Limits: limits,
			}
		}
		um.LoadProviders(providers)
		for id, limited := range rateLimited {
			if limited {
				um.Consume(id, "shared", 1, 1, 0)
			}
		}

		r := New(um)

		admittedZeroCostExists := false
		admittedExists := false
		for _, p := range providers {
			if rateLimited[p.ID] {
				continue
			}
			admittedExists = true
			if zeroCostTypes[p.Type] {
				admittedZeroCostExists = true
			}
		}

		chosenProvider, _, err := r.Select(providers, "shared", priceFor)
		if !admittedExists {
			if err == nil {
				rt.Fatalf("expected an error when no candidate is admitted")
			}
			return
		}
		if err != nil {
			rt.Fatalf("unexpected error with at least one admitted candidate: %v", err)
		}
		if rateLimited[chosenProvider.ID] {
			rt.Fatalf("selected a rate-limited provider: %s", chosenProvider.ID)
		}
		if admittedZeroCostExists && !zeroCostTypes[chosenProvider.Type] {
			rt.Fatalf("zero-cost candidate was admitted but a non-zero-cost provider was chosen: %s", chosenProvider.ID)
		}
	})
}
