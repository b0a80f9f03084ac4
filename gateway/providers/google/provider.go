// Package google adapts google.golang.org/genai to this gateway's
// provider.Adapter contract, for the "google" and "google-vertex" provider
// types. Vertex mode is selected by Config.Vertex; both share the same
// GenerateContent/GenerateContentStream call shape.
package google

import (
	"context"

	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/types"
	"google.golang.org/genai"
)

// Config configures one Google adapter instance.
type Config struct {
	APIKey    string
	Project   string // required when Vertex is true
	Region    string // required when Vertex is true
	Vertex    bool
}

// Provider wraps a genai.Client.
type Provider struct {
	client *genai.Client
}

// New builds a Provider from Config. An error from client construction is
// returned immediately (the Dispatcher's factory handles
// ProviderMisconfigured for missing credentials before ever reaching here).
func New(ctx context.Context, cfg Config) (*Provider, error) {
	backend := genai.BackendGeminiAPI
	ccfg := &genai.ClientConfig{APIKey: cfg.APIKey}
	if cfg.Vertex {
		backend = genai.BackendVertexAI
		ccfg = &genai.ClientConfig{Project: cfg.Project, Location: cfg.Region}
	}
	ccfg.Backend = backend

	client, err := genai.NewClient(ctx, ccfg)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

func toGenaiContents(msgs []provider.Message) (system string, contents []*genai.Content) {
	for _, m := range msgs {
		if m.Role == provider.RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		role := genai.RoleUser
		if m.Role == provider.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return system, contents
}

// Completion performs a non-streaming call.
func (p *Provider) Completion(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	system, contents := toGenaiContents(req.Messages)
	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, mapSDKError(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "google: no candidates returned").WithProvider("google")
	}

	text := resp.Text()
	finish := string(resp.Candidates[0].FinishReason)
	usage := provider.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return &provider.ChatResponse{Text: text, Usage: usage, FinishReason: finish}, nil
}

// Stream performs a streaming call.
func (p *Provider) Stream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	system, contents := toGenaiContents(req.Messages)
	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	}

	iter := p.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg)

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		var usage provider.Usage
		var finishReason string
		for resp, err := range iter {
			if err != nil {
				select {
				case <-ctx.Done():
				case ch <- provider.StreamChunk{Err: mapSDKError(err)}:
				}
				return
			}
			if text := resp.Text(); text != "" {
				select {
				case <-ctx.Done():
					return
				case ch <- provider.StreamChunk{TextDelta: text}:
				}
			}
			if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
				finishReason = string(resp.Candidates[0].FinishReason)
			}
			if resp.UsageMetadata != nil {
				usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
				usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
		}
		select {
		case <-ctx.Done():
		case ch <- provider.StreamChunk{Final: true, Usage: usage, FinishReason: finishReason}:
		}
	}()
	return ch, nil
}

func mapSDKError(err error) *types.Error {
	return types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider("google").WithCause(err)
}
