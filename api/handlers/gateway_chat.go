package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/BaSui01/agentflow/gateway"
	"github.com/BaSui01/agentflow/gateway/openaiwire"
	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/types"
	"go.uber.org/zap"
)

// GatewayChatHandler serves /v1/chat/completions against a gateway.Engine,
// which picks the upstream provider per request. The request/response bodies are the exact OpenAI wire
// shapes (gateway/openaiwire), not api.ChatRequest/api.ChatResponse — see
// openaiwire's package doc for why the two are kept separate.
type GatewayChatHandler struct {
	engine *gateway.Engine
	logger *zap.Logger
}

// NewGatewayChatHandler builds a handler bound to engine.
func NewGatewayChatHandler(engine *gateway.Engine, logger *zap.Logger) *GatewayChatHandler {
	return &GatewayChatHandler{engine: engine, logger: logger}
}

// decodeRequest decodes the body without DecodeJSONBody's
// DisallowUnknownFields: real OpenAI clients routinely send extra fields
// this gateway does not interpret (temperature, max_tokens, tools, ...),
// and per the prompt-transformation non-goal those are ignored rather than
// rejected.
func (h *GatewayChatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (openaiwire.ChatCompletionRequest, []provider.Message, bool) {
	if !ValidateContentType(w, r, h.logger) {
		return openaiwire.ChatCompletionRequest{}, nil, false
	}

	if r.Body == nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "request body is empty", h.logger)
		return openaiwire.ChatCompletionRequest{}, nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req openaiwire.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid JSON body: "+err.Error(), h.logger)
		return openaiwire.ChatCompletionRequest{}, nil, false
	}
	if req.Model == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "model is required", h.logger)
		return openaiwire.ChatCompletionRequest{}, nil, false
	}
	if len(req.Messages) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "messages must not be empty", h.logger)
		return openaiwire.ChatCompletionRequest{}, nil, false
	}
	messages := make([]provider.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = provider.Message{Role: provider.Role(m.Role), Content: m.Content}
	}
	return req, messages, true
}

// HandleCompletion serves the non-streaming path.
func (h *GatewayChatHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	req, messages, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.engine.Complete(r.Context(), req.Model, messages)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// HandleStream serves the streaming path. Unlike HandleCompletion, a
// mid-stream error cannot change the HTTP status once headers are sent, so
// Engine.Stream writes any such error in-band as a
// `data: {"error":"Streaming failed"}` frame followed by `data: [DONE]`
// and returns nil; only a pre-flight error (no provider available,
// adapter construction failed) reaches this error branch.
func (h *GatewayChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	req, messages, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	if err := h.engine.Stream(r.Context(), w, req.Model, messages); err != nil {
		h.writeGatewayError(w, err)
		return
	}
}

func (h *GatewayChatHandler) writeGatewayError(w http.ResponseWriter, err error) {
	if gwErr, ok := err.(*types.Error); ok {
		WriteError(w, gwErr, h.logger)
		return
	}
	WriteError(w, types.NewError(types.ErrInternalError, err.Error()).WithCause(err), h.logger)
}
