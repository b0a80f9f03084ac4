package pricing

import (
	"testing"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_PriceFor_ModelOverrideWinsVerbatim(t *testing.T) {
	c := New()
	zero := 0.0
	model := gatewaytypes.Model{Name: "local-llama", Pricing: &gatewaytypes.Pricing{InputCostPerMillionTokens: &zero, OutputCostPerMillionTokens: &zero}}

	p, ok := c.PriceFor(gatewaytypes.ProviderOllama, model)
	require.True(t, ok)
	assert.True(t, p.IsZeroCost())
}

func TestCatalog_PriceFor_ExactCatalogMatch(t *testing.T) {
	c := New()
	c.LoadEntries([]Entry{{ProviderType: "OPENAI", ModelName: "gpt-4o", InputPerM: 5, OutputPerM: 15}})

	p, ok := c.PriceFor(gatewaytypes.ProviderOpenAI, gatewaytypes.Model{Name: "gpt-4o"})
	require.True(t, ok)
	assert.Equal(t, 5.0, *p.InputCostPerMillionTokens)
	assert.Equal(t, 15.0, *p.OutputCostPerMillionTokens)
}

func TestCatalog_PriceFor_UnknownWhenNoMatch(t *testing.T) {
	c := New()
	_, ok := c.PriceFor(gatewaytypes.ProviderOpenAI, gatewaytypes.Model{Name: "gpt-9"})
	assert.False(t, ok)
}

func TestNormalizeProviderType_UnrecognizedFoldsToOpenAICompatible(t *testing.T) {
	assert.Equal(t, gatewaytypes.ProviderAnthropic, NormalizeProviderType("claude"))
	assert.Equal(t, gatewaytypes.ProviderOpenAICompatible, NormalizeProviderType("some-brand-new-vendor"))
}

func TestCalculateCost_UnknownPricingYieldsZeroAndNotKnown(t *testing.T) {
	cost, known := CalculateCost(gatewaytypes.Pricing{}, false, 1000, 1000)
	assert.False(t, known)
	assert.Zero(t, cost)
}

func TestCalculateCost_PerMillionTokenMath(t *testing.T) {
	in, out := 5.0, 15.0
	p := gatewaytypes.Pricing{InputCostPerMillionTokens: &in, OutputCostPerMillionTokens: &out}

	cost, known := CalculateCost(p, true, 1_000_000, 500_000)
	require.True(t, known)
	assert.InDelta(t, 5.0+7.5, cost, 1e-9)
}

func TestCalculateCost_FlatPerRequestIgnoresTokenCounts(t *testing.T) {
	flat := 0.01
	p := gatewaytypes.Pricing{CostPerRequest: &flat}

	cost, known := CalculateCost(p, true, 999999, 999999)
	require.True(t, known)
	assert.Equal(t, 0.01, cost)
}
