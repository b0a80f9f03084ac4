// Package openaicompat implements the generic OpenAI-compatible adapter
// used for every provider type whose wire protocol is already
// OpenAI-shaped: groq, togetherai, openrouter, deepseek, xai, perplexity,
// qwen, ollama, and the explicit openai-compatible/custom types. Adding a
// provider of this family is a single factory table entry (base URL +
// auth header), per SPEC_FULL.md §4.4 — directly grounded on the
// teacher's llm/providers/openaicompat.Provider and llm/providers/common.go
// shared wire types.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/types"
)

// Config configures one OpenAI-compatible adapter instance.
type Config struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	EndpointPath string // default "/v1/chat/completions"
	AuthHeader   string // default "Authorization"; value is always "Bearer <key>"
}

// Provider is the generic OpenAI-compatible adapter.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New builds a Provider, applying the teacher's defaulting convention
// (30s timeout, default chat-completions path).
func New(cfg Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + p.cfg.EndpointPath
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set(p.cfg.AuthHeader, "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// wire request/response shapes, shared with the upstream's actual
// chat-completions JSON contract.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type wireChoice struct {
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
	Message      *wireMessage `json:"message,omitempty"`
	Delta        *wireMessage `json:"delta,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	// InputTokens/OutputTokens are accepted as aliases some
	// OpenAI-compatible upstreams use instead of the prompt/completion
	// naming; normalize folds them into one provider.Usage shape.
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u wireUsage) normalize() provider.Usage {
	prompt, completion := u.PromptTokens, u.CompletionTokens
	if prompt == 0 && u.InputTokens != 0 {
		prompt = u.InputTokens
	}
	if completion == 0 && u.OutputTokens != 0 {
		completion = u.OutputTokens
	}
	return provider.Usage{PromptTokens: prompt, CompletionTokens: completion}
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

func toWireMessages(msgs []provider.Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wireMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// readErrorMessage mirrors providers.ReadErrorMessage: try a JSON
// {error:{message}} envelope, fall back to the raw body.
func readErrorMessage(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return string(data)
}

// mapHTTPError mirrors providers.MapHTTPError's status-code taxonomy.
func mapHTTPError(status int, msg, providerName string) *types.Error {
	switch status {
	case http.StatusUnauthorized:
		return types.NewError(types.ErrUnauthorized, msg).WithHTTPStatus(status).WithProvider(providerName)
	case http.StatusForbidden:
		return types.NewError(types.ErrForbidden, msg).WithHTTPStatus(status).WithProvider(providerName)
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).WithHTTPStatus(status).WithRetryable(true).WithProvider(providerName)
	case http.StatusBadRequest:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "credit") || strings.Contains(lower, "limit") {
			return types.NewError(types.ErrQuotaExceeded, msg).WithHTTPStatus(status).WithProvider(providerName)
		}
		return types.NewError(types.ErrInvalidRequest, msg).WithHTTPStatus(status).WithProvider(providerName)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return types.NewError(types.ErrUpstreamError, msg).WithHTTPStatus(status).WithRetryable(true).WithProvider(providerName)
	case 529:
		return types.NewError(types.ErrModelOverloaded, msg).WithHTTPStatus(status).WithRetryable(true).WithProvider(providerName)
	default:
		return types.NewError(types.ErrUpstreamError, msg).WithHTTPStatus(status).WithRetryable(status >= 500).WithProvider(providerName)
	}
}

// Completion performs a non-streaming call.
func (p *Provider) Completion(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	body := wireRequest{Model: req.Model, Messages: toWireMessages(req.Messages)}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openaicompat: build request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(p.cfg.ProviderName)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body), p.cfg.ProviderName)
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(p.cfg.ProviderName)
	}
	if len(wr.Choices) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "empty choices in upstream response").WithProvider(p.cfg.ProviderName)
	}
	text := ""
	if wr.Choices[0].Message != nil {
		text = wr.Choices[0].Message.Content
	}
	return &provider.ChatResponse{
		Text:         text,
		Usage:        wr.Usage.normalize(),
		FinishReason: wr.Choices[0].FinishReason,
	}, nil
}

// Stream performs a streaming call over SSE.
func (p *Provider) Stream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	body := wireRequest{Model: req.Model, Messages: toWireMessages(req.Messages), Stream: true}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openaicompat: build request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(p.cfg.ProviderName)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body), p.cfg.ProviderName)
	}

	return streamSSE(ctx, resp.Body, p.cfg.ProviderName), nil
}

// streamSSE parses an OpenAI-shaped SSE body into StreamChunks, matching
// the teacher's llm/providers/openaicompat.StreamSSE loop exactly: read
// line by line, skip non-data lines, stop at [DONE], decode each data
// payload as a wireResponse and forward its delta/usage/finish_reason.
func streamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan provider.StreamChunk {
	ch := make(chan provider.StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		var lastUsage provider.Usage
		var lastFinish string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					send(ctx, ch, provider.StreamChunk{Err: types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(providerName)})
				} else {
					send(ctx, ch, provider.StreamChunk{Final: true, Usage: lastUsage, FinishReason: lastFinish})
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				send(ctx, ch, provider.StreamChunk{Final: true, Usage: lastUsage, FinishReason: lastFinish})
				return
			}
			var wr wireResponse
			if err := json.Unmarshal([]byte(data), &wr); err != nil {
				send(ctx, ch, provider.StreamChunk{Err: types.NewError(types.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(providerName)})
				return
			}
			if wr.Usage.PromptTokens != 0 || wr.Usage.CompletionTokens != 0 || wr.Usage.InputTokens != 0 {
				lastUsage = wr.Usage.normalize()
			}
			for _, choice := range wr.Choices {
				if choice.FinishReason != "" {
					lastFinish = choice.FinishReason
				}
				if choice.Delta != nil && choice.Delta.Content != "" {
					if !send(ctx, ch, provider.StreamChunk{TextDelta: choice.Delta.Content}) {
						return
					}
				}
			}
		}
	}()
	return ch
}

func send(ctx context.Context, ch chan<- provider.StreamChunk, c provider.StreamChunk) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- c:
		return true
	}
}
