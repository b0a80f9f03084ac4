// Package gatewaytypes holds the configuration and usage data model shared
// by every component of the gateway: Provider/Model configuration, the
// nine-dimension Limits shape, Pricing, and the computed UsageRecord.
package gatewaytypes

import "time"

// ProviderType is the closed set of upstream provider kinds the gateway
// knows how to dispatch to. Config loading does not check it; an
// unsupported type is rejected via Valid() when the Dispatcher builds the
// provider's adapter.
type ProviderType string

const (
	ProviderOpenAI           ProviderType = "openai"
	ProviderAnthropic        ProviderType = "anthropic"
	ProviderGoogle           ProviderType = "google"
	ProviderGoogleVertex     ProviderType = "google-vertex"
	ProviderAzure            ProviderType = "azure"
	ProviderBedrock          ProviderType = "bedrock"
	ProviderGroq             ProviderType = "groq"
	ProviderMistral          ProviderType = "mistral"
	ProviderDeepSeek         ProviderType = "deepseek"
	ProviderXAI              ProviderType = "xai"
	ProviderPerplexity       ProviderType = "perplexity"
	ProviderTogetherAI       ProviderType = "togetherai"
	ProviderOpenRouter       ProviderType = "openrouter"
	ProviderOllama           ProviderType = "ollama"
	ProviderQwen             ProviderType = "qwen"
	ProviderOpenAICompatible ProviderType = "openai-compatible"
	ProviderClaudeCode       ProviderType = "claude-code"
	ProviderGeminiCLI        ProviderType = "gemini-cli"
	ProviderCopilot          ProviderType = "copilot"
	ProviderCustom           ProviderType = "custom"
)

var validProviderTypes = map[ProviderType]bool{
	ProviderOpenAI: true, ProviderAnthropic: true, ProviderGoogle: true,
	ProviderGoogleVertex: true, ProviderAzure: true, ProviderBedrock: true,
	ProviderGroq: true, ProviderMistral: true, ProviderDeepSeek: true,
	ProviderXAI: true, ProviderPerplexity: true, ProviderTogetherAI: true,
	ProviderOpenRouter: true, ProviderOllama: true, ProviderQwen: true,
	ProviderOpenAICompatible: true, ProviderClaudeCode: true,
	ProviderGeminiCLI: true, ProviderCopilot: true, ProviderCustom: true,
}

// Valid reports whether t is a member of the closed provider-type set.
func (t ProviderType) Valid() bool { return validProviderTypes[t] }

// Limits is the nine-dimension rate/cost budget shape. Zero value of each
// field means "no limit configured for this dimension" (absent, not zero).
// Cost fields are expressed in USD at the configuration layer; the usage
// package converts to integer points (1 USD = 10000 points) internally.
type Limits struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute,omitempty" json:"requestsPerMinute,omitempty"`
	RequestsPerHour   float64 `yaml:"requests_per_hour,omitempty" json:"requestsPerHour,omitempty"`
	RequestsPerDay    float64 `yaml:"requests_per_day,omitempty" json:"requestsPerDay,omitempty"`
	TokensPerMinute   float64 `yaml:"tokens_per_minute,omitempty" json:"tokensPerMinute,omitempty"`
	TokensPerHour     float64 `yaml:"tokens_per_hour,omitempty" json:"tokensPerHour,omitempty"`
	TokensPerDay      float64 `yaml:"tokens_per_day,omitempty" json:"tokensPerDay,omitempty"`
	CostPerMinute     float64 `yaml:"cost_per_minute,omitempty" json:"costPerMinute,omitempty"`
	CostPerHour       float64 `yaml:"cost_per_hour,omitempty" json:"costPerHour,omitempty"`
	CostPerDay        float64 `yaml:"cost_per_day,omitempty" json:"costPerDay,omitempty"`
}

// IsZero reports whether no dimension is configured.
func (l Limits) IsZero() bool { return l == Limits{} }

// Pricing is per-million-token pricing, or a flat per-request override.
type Pricing struct {
	InputCostPerMillionTokens  *float64 `yaml:"input_cost_per_million_tokens,omitempty" json:"inputCostPerMillionTokens,omitempty"`
	OutputCostPerMillionTokens *float64 `yaml:"output_cost_per_million_tokens,omitempty" json:"outputCostPerMillionTokens,omitempty"`
	CostPerRequest             *float64 `yaml:"cost_per_request,omitempty" json:"costPerRequest,omitempty"`
}

// IsZeroCost reports whether every defined price field is exactly 0. An
// empty Pricing{} (no field set) is NOT zero-cost — missing pricing is
// unknown, not free.
func (p Pricing) IsZeroCost() bool {
	if p.InputCostPerMillionTokens == nil && p.OutputCostPerMillionTokens == nil && p.CostPerRequest == nil {
		return false
	}
	if p.CostPerRequest != nil {
		return *p.CostPerRequest == 0
	}
	in, out := 0.0, 0.0
	if p.InputCostPerMillionTokens != nil {
		in = *p.InputCostPerMillionTokens
	}
	if p.OutputCostPerMillionTokens != nil {
		out = *p.OutputCostPerMillionTokens
	}
	return in == 0 && out == 0
}

// Model is one model identifier a Provider serves.
type Model struct {
	Name        string   `yaml:"name" json:"name"`
	MappedName  string   `yaml:"mapped_name,omitempty" json:"mappedName,omitempty"`
	Pricing     *Pricing `yaml:"pricing,omitempty" json:"pricing,omitempty"`
	Limits      *Limits  `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// ClientFacingName returns MappedName if set, else Name.
func (m Model) ClientFacingName() string {
	if m.MappedName != "" {
		return m.MappedName
	}
	return m.Name
}

// Credentials holds every credential shape any provider type might need.
// Fields are type-gated: a given ProviderType only consults the subset it
// needs; factories reject configs missing the fields their type requires.
type Credentials struct {
	APIKey            string `yaml:"api_key,omitempty" json:"-"`
	OAuthToken        string `yaml:"oauth_token,omitempty" json:"-"`
	BaseURL           string `yaml:"base_url,omitempty" json:"baseUrl,omitempty"`
	AzureResource     string `yaml:"azure_resource,omitempty" json:"-"`
	AzureDeployment   string `yaml:"azure_deployment,omitempty" json:"-"`
	AWSAccessKeyID    string `yaml:"aws_access_key_id,omitempty" json:"-"`
	AWSSecretKey      string `yaml:"aws_secret_access_key,omitempty" json:"-"`
	AWSRegion         string `yaml:"aws_region,omitempty" json:"-"`
	GCPProject        string `yaml:"gcp_project,omitempty" json:"-"`
	GCPRegion         string `yaml:"gcp_region,omitempty" json:"-"`
}

// Provider is one configured upstream LLM endpoint.
type Provider struct {
	ID          string       `yaml:"id" json:"id"`
	Type        ProviderType `yaml:"type" json:"type"`
	Credentials Credentials  `yaml:"credentials,omitempty" json:"-"`
	Models      []Model      `yaml:"models" json:"models"`
	Limits      *Limits      `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// ModelByClientFacingName returns the Model whose MappedName-or-Name equals
// name, and true, or the zero value and false.
func (p Provider) ModelByClientFacingName(name string) (Model, bool) {
	for _, m := range p.Models {
		if m.ClientFacingName() == name {
			return m, true
		}
	}
	return Model{}, false
}

// UsageRecord describes one completed call's usage. No code path in this
// module builds one: the Executor passes token counts and cost straight to
// usage.Manager.Consume and logs unknown pricing instead of recording it.
type UsageRecord struct {
	ProviderID       string    `json:"providerId"`
	ModelName        string    `json:"modelName"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	CostUSD          float64   `json:"costUsd"`
	PricingUnknown   bool      `json:"pricingUnknown,omitempty"`
	TimestampUTC     time.Time `json:"timestampUtc"`
}
