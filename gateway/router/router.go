// Package router implements the Router: given a client-facing model name,
// it finds every configured Provider+Model that can serve it, narrows to
// candidates currently under their admission limits, and picks one,
// preferring zero-cost candidates. Grounded on the teacher's
// llm/router weighted-selection shape, generalized from "weight" to
// "zero-cost first, then uniform" per this gateway's routing contract and
// stripped of the teacher's post-failure retry/fallback loop per the
// explicit redesign decision that failover happens at admission time only.
package router

import (
	"math/rand"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/BaSui01/agentflow/gateway/usage"
	"github.com/BaSui01/agentflow/types"
)

// candidate pairs a Provider with the specific Model entry that matches
// the requested client-facing name.
type candidate struct {
	provider gatewaytypes.Provider
	model    gatewaytypes.Model
}

// Router selects a provider for a chat-completion request.
type Router struct {
	usage *usage.Manager
	rand  func(n int) int // injected for deterministic tests
}

// New builds a Router backed by the given UsageManager.
func New(usageManager *usage.Manager) *Router {
	return &Router{usage: usageManager, rand: rand.Intn}
}

// Select returns one Provider+Model able to serve modelName right now.
//
// Candidate enumeration: every configured Provider whose Models contains a
// Model with ClientFacingName() == modelName. Admission filtering: of
// those, only ones passing UsageManager.IsUnderLimit(providerID, modelName)
// (requests/tokens dimensions only — cost dimensions are never
// pre-checked, only enforced post-hoc by Consume). Selection: if any
// admitted candidate is zero-cost per PriceCatalog lookup, pick uniformly
// at random among the zero-cost ones; otherwise pick uniformly at random
// among all admitted candidates.
func (r *Router) Select(providers []gatewaytypes.Provider, modelName string, priceFor func(gatewaytypes.ProviderType, gatewaytypes.Model) (gatewaytypes.Pricing, bool)) (gatewaytypes.Provider, gatewaytypes.Model, error) {
	all := enumerate(providers, modelName)
	if len(all) == 0 {
		return gatewaytypes.Provider{}, gatewaytypes.Model{}, types.NewError(
			types.ErrNoProviderForModel,
			"no configured provider serves model "+modelName,
		).WithHTTPStatus(404)
	}

	admitted := make([]candidate, 0, len(all))
	for _, c := range all {
		if r.usage.IsUnderLimit(c.provider.ID, modelName) {
			admitted = append(admitted, c)
		}
	}
	if len(admitted) == 0 {
		return gatewaytypes.Provider{}, gatewaytypes.Model{}, types.NewError(
			types.ErrAllProvidersRateLimited,
			"every provider serving model "+modelName+" is at capacity",
		).WithHTTPStatus(503).WithRetryable(true)
	}

	zero := make([]candidate, 0, len(admitted))
	for _, c := range admitted {
		price, ok := priceFor(c.provider.Type, c.model)
		if ok && price.IsZeroCost() {
			zero = append(zero, c)
		}
	}

	pool := admitted
	if len(zero) > 0 {
		pool = zero
	}

	chosen := pool[r.rand(len(pool))]
	return chosen.provider, chosen.model, nil
}

func enumerate(providers []gatewaytypes.Provider, modelName string) []candidate {
	var out []candidate
	for _, p := range providers {
		if m, ok := p.ModelByClientFacingName(modelName); ok {
			out = append(out, candidate{provider: p, model: m})
		}
	}
	return out
}
