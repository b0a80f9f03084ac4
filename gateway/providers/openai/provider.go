// Package openai adapts the official OpenAI Go SDK
// (github.com/openai/openai-go/v3) to this gateway's provider.Adapter
// contract, for the "openai" provider type. Other OpenAI-wire-compatible
// types (groq, togetherai, ...) use the simpler hand-rolled HTTP adapter in
// gateway/providers/openaicompat instead; this package exists specifically
// to exercise the real SDK the teacher already depends on.
package openai

import (
	"context"

	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/types"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config configures one OpenAI adapter instance.
type Config struct {
	APIKey       string
	BaseURL      string // empty uses the SDK's default (api.openai.com)
	Organization string
}

// Provider wraps an openai.Client.
type Provider struct {
	client openai.Client
}

// New builds a Provider from Config.
func New(cfg Config) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Organization != "" {
		opts = append(opts, option.WithOrganization(cfg.Organization))
	}
	return &Provider{client: openai.NewClient(opts...)}
}

func toSDKMessages(msgs []provider.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case provider.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toSDKMessages(req.Messages),
	})
	if err != nil {
		return nil, mapSDKError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "openai: empty choices").WithProvider("openai")
	}
	return &provider.ChatResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: provider.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// Stream performs a streaming chat completion, translating the SDK's
// server-sent-event iterator into this gateway's StreamChunk shape.
func (p *Provider) Stream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toSDKMessages(req.Messages),
	})

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		var finishReason string
		var usage provider.Usage
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 {
				c := chunk.Choices[0]
				if c.Delta.Content != "" {
					select {
					case <-ctx.Done():
						return
					case ch <- provider.StreamChunk{TextDelta: c.Delta.Content}:
					}
				}
				if c.FinishReason != "" {
					finishReason = string(c.FinishReason)
				}
			}
			if chunk.Usage.TotalTokens != 0 {
				usage = provider.Usage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
				}
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
	var apiErr *openai.Error
	if ok := asOpenAIError(err, &apiErr); ok {
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
		case 400:
			code = types.ErrInvalidRequest
		}
		return types.NewError(code, apiErr.Message).
			WithHTTPStatus(apiErr.StatusCode).
			WithRetryable(retryable).
			WithProvider("openai").
			WithCause(err)
	}
	return types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider("openai").WithCause(err)
}

// asOpenAIError type-asserts err as *openai.Error without importing errors.As
// at every call site.
func asOpenAIError(err error, target **openai.Error) bool {
	if apiErr, ok := err.(*openai.Error); ok {
		*target = apiErr
		return true
	}
	return false
}
