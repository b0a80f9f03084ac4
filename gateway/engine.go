// Package gateway wires the six core components (ConfigSource, PriceCatalog,
// UsageManager, Router, Dispatcher, Executor) into one Engine and keeps them
// in sync across config reloads. This replaces the teacher's
// package-level/singleton AgentFlow convenience wrapper (agentflow.go) with
// an explicit struct any number of independently-configured Engines can be
// built from, per SPEC_FULL.md's "Singletons and global state" design note.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/agentflow/gateway/configsource"
	"github.com/BaSui01/agentflow/gateway/dispatch"
	"github.com/BaSui01/agentflow/gateway/executor"
	"github.com/BaSui01/agentflow/gateway/openaiwire"
	"github.com/BaSui01/agentflow/gateway/pricing"
	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/gateway/router"
	"github.com/BaSui01/agentflow/gateway/usage"
	"go.uber.org/zap"
)

// Engine is the assembled gateway: one Router/UsageManager/Dispatcher/
// Executor set bound to one ConfigSource and one PriceCatalog.
type Engine struct {
	config  configsource.ConfigSource
	catalog *pricing.Catalog
	usage   *usage.Manager
	dispatch *dispatch.Dispatcher
	router  *router.Router
	exec    *executor.Executor
	logger  *zap.Logger
	done    chan struct{}
}

// New builds an Engine from a ConfigSource and PriceCatalog, loads the
// initial provider snapshot into the UsageManager, and starts a background
// goroutine that reconciles limiters and invalidates the Dispatcher's
// adapter cache on every subsequent reload.
func New(cfg configsource.ConfigSource, catalog *pricing.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	um := usage.NewManager(logger)
	um.LoadProviders(cfg.Providers())

	e := &Engine{
		config:   cfg,
		catalog:  catalog,
		usage:    um,
		dispatch: dispatch.New(),
		router:   router.New(um),
		logger:   logger,
		done:     make(chan struct{}),
	}
	e.exec = executor.New(catalog, um, logger)
	go e.watchReloads()
	return e
}

func (e *Engine) watchReloads() {
	reloads := e.config.Subscribe()
	for {
		select {
		case <-e.done:
			return
		case _, ok := <-reloads:
			if !ok {
				return
			}
			providers := e.config.Providers()
			e.usage.Reconcile(providers)
			e.dispatch.Invalidate()
			e.logger.Info("gateway: config reload applied", zap.Int("provider_count", len(providers)))
		}
	}
}

// Close stops the reload-watching goroutine. The underlying ConfigSource is
// owned by the caller and is not closed here.
func (e *Engine) Close() {
	close(e.done)
}

// Complete runs the full pipeline for a non-streaming request: select a
// provider, resolve its adapter, call it, and return the OpenAI-shaped
// response.
func (e *Engine) Complete(ctx context.Context, modelName string, messages []provider.Message) (openaiwire.ChatCompletionResponse, error) {
	p, m, err := e.router.Select(e.config.Providers(), modelName, e.catalog.PriceFor)
	if err != nil {
		return openaiwire.ChatCompletionResponse{}, err
	}
	adapter, err := e.dispatch.Get(ctx, p)
	if err != nil {
		return openaiwire.ChatCompletionResponse{}, err
	}
	return e.exec.Complete(ctx, adapter, executor.Request{Provider: p, Model: m, Messages: messages})
}

// Stream runs the full pipeline for a streaming request, writing SSE
// directly to w.
func (e *Engine) Stream(ctx context.Context, w http.ResponseWriter, modelName string, messages []provider.Message) error {
	p, m, err := e.router.Select(e.config.Providers(), modelName, e.catalog.PriceFor)
	if err != nil {
		return err
	}
	adapter, err := e.dispatch.Get(ctx, p)
	if err != nil {
		return err
	}
	return e.exec.StreamTo(ctx, w, adapter, executor.Request{Provider: p, Model: m, Messages: messages})
}

// Usage exposes the UsageManager snapshot for the observability surface.
func (e *Engine) Usage() *usage.Manager { return e.usage }

// ListModels returns the union of every configured provider's client-facing
// model names, deduplicated, for GET /v1/models. Two providers serving the
// same mapped name collapse to a single entry.
func (e *Engine) ListModels() openaiwire.ModelListResponse {
	seen := make(map[string]bool)
	now := time.Now().Unix()
	data := []openaiwire.ModelInfo{}
	for _, p := range e.config.Providers() {
		for _, m := range p.Models {
			name := m.ClientFacingName()
			if seen[name] {
				continue
			}
			seen[name] = true
			data = append(data, openaiwire.ModelInfo{
				ID:      name,
				Object:  "model",
				Created: now,
				OwnedBy: "ai",
			})
		}
	}
	return openaiwire.ModelListResponse{Object: "list", Data: data}
}
