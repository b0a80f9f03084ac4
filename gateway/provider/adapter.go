// Package provider defines the adapter contract every upstream LLM
// provider type implements, and the Message/ChatRequest/ChatResponse
// shapes the Executor uses to talk to adapters. This mirrors the
// teacher's llm.Provider interface, narrowed to exactly the
// non-streaming/streaming contract the core spec's Dispatcher (§4.4) and
// Executor (§4.5) need — no tool calling, multimodal, or agent-framework
// concerns.
package provider

import (
	"context"

	"github.com/BaSui01/agentflow/types"
)

// Role is a conversation message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message in a request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is what the Executor hands the Dispatcher's adapter. Model
// is always the provider-facing gatewaytypes.Model.Name, never the
// client-facing mapped name — mapping happens only at the wire boundary.
type ChatRequest struct {
	Model    string
	Messages []Message
	Stream   bool
}

// Usage is the adapter's report of tokens consumed, normalized to one
// shape regardless of the upstream's own field names (promptTokens vs
// inputTokens); the normalization happens inside each adapter.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ChatResponse is the uniform non-streaming adapter result.
type ChatResponse struct {
	Text         string
	Usage        Usage
	FinishReason string
}

// StreamChunk is one event from a streaming adapter call. Exactly one of
// Err set or a text/final event is meaningful per chunk:
//   - TextDelta != "": a text fragment.
//   - Final == true: the stream ended; Usage and FinishReason are valid.
//   - Err != nil: the upstream stream failed; no further chunks follow.
type StreamChunk struct {
	TextDelta    string
	Final        bool
	Usage        Usage
	FinishReason string
	Err          *types.Error
}

// Adapter is the uniform contract every provider type exposes, regardless
// of its own wire protocol. Dispatcher caches one Adapter per
// (providerType, providerID); the Executor is the only caller.
type Adapter interface {
	// Completion performs a single non-streaming call.
	Completion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Stream performs a streaming call; the returned channel is closed
	// after the final chunk (Final==true) or the first error chunk.
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
}
