// Package anthropic adapts the official Anthropic Go SDK
// (github.com/anthropics/anthropic-sdk-go) to this gateway's
// provider.Adapter contract, for the "anthropic" provider type, grounded
// on the teacher's llm/providers/anthropic package shape (separate system
// prompt, message-content-block streaming deltas).
package anthropic

import (
	"context"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/types"
)

// Config configures one Anthropic adapter instance.
type Config struct {
	APIKey           string
	BaseURL          string
	AnthropicVersion string
	MaxTokens        int64 // Anthropic requires max_tokens; default applied if zero
}

// Provider wraps an anthropicsdk.Client.
type Provider struct {
	client    anthropicsdk.Client
	maxTokens int64
}

// New builds a Provider from Config.
func New(cfg Config) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &Provider{client: anthropicsdk.NewClient(opts...), maxTokens: maxTokens}
}

// splitSystem pulls leading system messages out, since Anthropic's API
// takes the system prompt as a top-level field rather than a message role.
func splitSystem(msgs []provider.Message) (system string, rest []anthropicsdk.MessageParam) {
	for _, m := range msgs {
		if m.Role == provider.RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		if m.Role == provider.RoleAssistant {
			rest = append(rest, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		} else {
			rest = append(rest, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}
	return system, rest
}

// Completion performs a non-streaming call.
func (p *Provider) Completion(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	system, messages := splitSystem(req.Messages)
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: p.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapSDKError(err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &provider.ChatResponse{
		Text: text,
		Usage: provider.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}

// Stream performs a streaming call, translating Anthropic's
// content-block-delta event stream into this gateway's StreamChunk shape.
func (p *Provider) Stream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	system, messages := splitSystem(req.Messages)
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: p.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		var usage provider.Usage
		var finishReason string
		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text != "" {
					select {
					case <-ctx.Done():
						return
					case ch <- provider.StreamChunk{TextDelta: event.Delta.Text}:
					}
				}
			case "message_delta":
				if event.Delta.StopReason != "" {
					finishReason = string(event.Delta.StopReason)
				}
				if event.Usage.OutputTokens != 0 {
					usage.CompletionTokens = int(event.Usage.OutputTokens)
				}
			case "message_start":
				usage.PromptTokens = int(event.Message.Usage.InputTokens)
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case <-ctx.Done():
			case ch <- provider.StreamChunk{Err: mapSDKError(err)}:
			}
			return
		}
		select {
		case <-ctx.Done():
		case ch <- provider.StreamChunk{Final: true, Usage: usage, FinishReason: finishReason}:
		}
	}()
	return ch, nil
}

func mapSDKError(err error) *types.Error {
	if apiErr, ok := err.(*anthropicsdk.Error); ok {
		code := types.ErrUpstreamError
		retryable := apiErr.StatusCode >= 500
		switch apiErr.StatusCode {
		case 401:
			code = types.ErrUnauthorized
		case 403:
			code = types.ErrForbidden
		case 429:
			code = types.ErrRateLimited
			retryable = true
		case 529:
			code = types.ErrModelOverloaded
			retryable = true
		}
		return types.NewError(code, apiErr.Message).
			WithHTTPStatus(apiErr.StatusCode).
			WithRetryable(retryable).
			WithProvider("anthropic").
			WithCause(err)
	}
	return types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider("anthropic").WithCause(err)
}
