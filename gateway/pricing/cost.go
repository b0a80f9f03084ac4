package pricing

import "github.com/BaSui01/agentflow/gatewaytypes"

// CalculateCost computes the USD cost of one completed call given its
// resolved Pricing and token counts. The bool return mirrors PriceFor's
// found/not-found signal so callers can distinguish "$0, known" from
// "cost unknown" (the latter returns zero; the Executor records it as zero
// cost and logs a warning).
func CalculateCost(p gatewaytypes.Pricing, found bool, promptTokens, completionTokens int) (costUSD float64, known bool) {
	if !found {
		return 0, false
	}
	if p.CostPerRequest != nil {
		return *p.CostPerRequest, true
	}
	var in, out float64
	if p.InputCostPerMillionTokens != nil {
		in = *p.InputCostPerMillionTokens
	}
	if p.OutputCostPerMillionTokens != nil {
		out = *p.OutputCostPerMillionTokens
	}
	cost := (float64(promptTokens)/1_000_000)*in + (float64(completionTokens)/1_000_000)*out
	return cost, true
}
