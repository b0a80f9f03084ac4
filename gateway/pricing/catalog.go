// Package pricing implements the PriceCatalog: an in-memory pricing
// lookup populated once at startup from an external pricing-data feed
// (the fetch itself is out of this core's scope, per SPEC_FULL.md §4.3 —
// the catalog only exposes Load for a caller to feed parsed entries in).
package pricing

import (
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/BaSui01/agentflow/gatewaytypes"
)

// Entry is one row of the external pricing feed, keyed by provider type and
// model name once normalized.
type Entry struct {
	ProviderType string  `json:"provider"`
	ModelName    string  `json:"model"`
	InputPerM    float64 `json:"input_cost_per_million_tokens"`
	OutputPerM   float64 `json:"output_cost_per_million_tokens"`
}

// normalizeTable maps upstream catalog provider-type spellings onto this
// gateway's closed ProviderType set. Long-tail entries not in this table
// fold to openai-compatible, matching the core spec's normalization rule.
var normalizeTable = map[string]gatewaytypes.ProviderType{
	"ANTHROPIC": gatewaytypes.ProviderAnthropic,
	"CLAUDE":    gatewaytypes.ProviderAnthropic,
	"OPENAI":    gatewaytypes.ProviderOpenAI,
	"GOOGLE":    gatewaytypes.ProviderGoogle,
	"GEMINI":    gatewaytypes.ProviderGoogle,
	"X":         gatewaytypes.ProviderXAI,
	"XAI":       gatewaytypes.ProviderXAI,
	"AWS":       gatewaytypes.ProviderBedrock,
	"BEDROCK":   gatewaytypes.ProviderBedrock,
	"GROQ":      gatewaytypes.ProviderGroq,
	"MISTRAL":   gatewaytypes.ProviderMistral,
	"DEEPSEEK":  gatewaytypes.ProviderDeepSeek,
	"QWEN":      gatewaytypes.ProviderQwen,
	"PERPLEXITY": gatewaytypes.ProviderPerplexity,
	"TOGETHERAI": gatewaytypes.ProviderTogetherAI,
	"OPENROUTER": gatewaytypes.ProviderOpenRouter,
	"OLLAMA":     gatewaytypes.ProviderOllama,
}

// NormalizeProviderType maps an upstream catalog spelling to this gateway's
// closed provider-type set, folding anything unrecognized to
// openai-compatible.
func NormalizeProviderType(raw string) gatewaytypes.ProviderType {
	if t, ok := normalizeTable[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t
	}
	return gatewaytypes.ProviderOpenAICompatible
}

type catalogKey struct {
	providerType gatewaytypes.ProviderType
	modelName    string
}

// Catalog is the in-memory price lookup.
type Catalog struct {
	mu      sync.RWMutex
	entries map[catalogKey]gatewaytypes.Pricing
}

// New returns an empty catalog. An empty catalog is a valid, fully
// functional state: the price-catalog fetch is best-effort and failing
// open (network failure) must not prevent the engine from serving
// requests — every lookup simply returns "unknown".
func New() *Catalog {
	return &Catalog{entries: make(map[catalogKey]gatewaytypes.Pricing)}
}

// Load replaces the catalog's contents by decoding a JSON array of Entry
// from r. Called once at startup by the binary that owns the HTTP fetch;
// the core package never performs network I/O itself.
func (c *Catalog) Load(r io.Reader) error {
	var raw []Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return err
	}
	c.LoadEntries(raw)
	return nil
}

// LoadEntries replaces the catalog's contents with pre-parsed entries.
func (c *Catalog) LoadEntries(raw []Entry) {
	next := make(map[catalogKey]gatewaytypes.Pricing, len(raw))
	for _, e := range raw {
		in, out := e.InputPerM, e.OutputPerM
		next[catalogKey{providerType: NormalizeProviderType(e.ProviderType), modelName: e.ModelName}] = gatewaytypes.Pricing{
			InputCostPerMillionTokens:  &in,
			OutputCostPerMillionTokens: &out,
		}
	}
	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
}

// PriceFor resolves pricing for (providerType, modelName): the model's own
// override wins verbatim if present (including an explicitly-empty
// override, which is "known and zero-valued", distinct from "unknown");
// otherwise an exact (no prefix/substring) catalog match; otherwise
// unknown.
func (c *Catalog) PriceFor(providerType gatewaytypes.ProviderType, model gatewaytypes.Model) (gatewaytypes.Pricing, bool) {
	if model.Pricing != nil {
		return *model.Pricing, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[catalogKey{providerType: providerType, modelName: model.Name}]
	return p, ok
}
