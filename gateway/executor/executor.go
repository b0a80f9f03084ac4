// Package executor implements the Executor: the component that actually
// calls the selected provider adapter and translates its response into the
// OpenAI wire contract, accounting usage exactly once per completed call
// on either path (non-streaming or SSE). Grounded on the teacher's
// api/handlers/chat.go HandleCompletion/HandleStream pair, generalized from
// one fixed llm.Provider to the gateway's Dispatcher-resolved Adapter.
package executor

import (
	"context"
	"time"

	"github.com/BaSui01/agentflow/gateway/openaiwire"
	"github.com/BaSui01/agentflow/gateway/pricing"
	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/gateway/usage"
	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/BaSui01/agentflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request is the Executor's input: the resolved provider/model pair (from
// Router.Select) plus the chat request to forward.
type Request struct {
	Provider gatewaytypes.Provider
	Model    gatewaytypes.Model
	Messages []provider.Message
}

// Executor ties together an already-resolved adapter call, cost
// calculation, and usage accounting. It does not itself select a provider
// (that is Router's job) or resolve the adapter instance (Dispatcher's).
type Executor struct {
	catalog *pricing.Catalog
	usage   *usage.Manager
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// New builds an Executor.
func New(catalog *pricing.Catalog, usageManager *usage.Manager, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		catalog: catalog,
		usage:   usageManager,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return "chatcmpl-" + uuid.NewString() },
	}
}

// Complete runs the non-streaming path: call the adapter, compute cost,
// account usage, and translate the response into the OpenAI wire shape.
// The upstream call is detached from ctx's cancellation, so a client that
// disconnects early does not abort it and the call is still accounted. An
// adapter failure is returned as ErrUpstreamCallFailed wrapping the
// adapter's error as its Cause.
func (e *Executor) Complete(ctx context.Context, adapter provider.Adapter, req Request) (openaiwire.ChatCompletionResponse, error) {
	resp, err := adapter.Completion(context.WithoutCancel(ctx), provider.ChatRequest{Model: req.Model.Name, Messages: req.Messages})
	if err != nil {
		return openaiwire.ChatCompletionResponse{}, types.NewError(types.ErrUpstreamCallFailed, "upstream call failed").
			WithProvider(req.Provider.ID).WithCause(err)
	}

	e.account(req, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	clientModel := req.Model.ClientFacingName()
	out := openaiwire.NewChatCompletionResponse(e.newID(), clientModel, resp.Text, resp.FinishReason, openaiwire.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
	})
	out.Created = e.now().Unix()
	return out, nil
}

// account resolves pricing and records the call in the UsageManager. It is
// called exactly once per completed call, from both the streaming and
// non-streaming paths, immediately once final token counts are known.
func (e *Executor) account(req Request, promptTokens, completionTokens int) {
	price, found := e.catalog.PriceFor(req.Provider.Type, req.Model)
	costUSD, known := pricing.CalculateCost(price, found, promptTokens, completionTokens)
	if !known {
		e.logger.Warn("executor: pricing unknown, recording zero cost",
			zap.String("provider_id", req.Provider.ID),
			zap.String("model", req.Model.Name),
		)
	}
	e.usage.Consume(req.Provider.ID, req.Model.Name, promptTokens, completionTokens, costUSD)
}
