package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentflow/gateway/pricing"
	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/gateway/usage"
	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/BaSui01/agentflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConfigSource struct {
	providers []gatewaytypes.Provider
	reloads   chan struct{}
}

func newFakeConfigSource(providers []gatewaytypes.Provider) *fakeConfigSource {
	return &fakeConfigSource{providers: providers, reloads: make(chan struct{}, 1)}
}

func (f *fakeConfigSource) Providers() []gatewaytypes.Provider { return f.providers }
func (f *fakeConfigSource) Subscribe() <-chan struct{}          { return f.reloads }
func (f *fakeConfigSource) Close() error                        { return nil }

func (f *fakeConfigSource) setProviders(p []gatewaytypes.Provider) {
	f.providers = p
	f.reloads <- struct{}{}
}

func TestEngine_Complete_NoProviderForModel(t *testing.T) {
	cfg := newFakeConfigSource(nil)
	e := New(cfg, pricing.New(), zap.NewNop())
	defer e.Close()

	_, err := e.Complete(context.Background(), "gpt-5", []provider.Message{{Role: provider.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrNoProviderForModel, err.(*types.Error).Code)
}

func TestEngine_Complete_MisconfiguredAdapterSurfacesDispatchError(t *testing.T) {
	cfg := newFakeConfigSource([]gatewaytypes.Provider{
		{ID: "broken", Type: gatewaytypes.ProviderOpenAI, Models: []gatewaytypes.Model{{Name: "gpt-4o"}}},
	})
	e := New(cfg, pricing.New(), zap.NewNop())
	defer e.Close()

	_, err := e.Complete(context.Background(), "gpt-4o", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderMisconfigured, err.(*types.Error).Code)
}

func TestEngine_ListModels_DedupsAcrossProvidersByClientFacingName(t *testing.T) {
	cfg := newFakeConfigSource([]gatewaytypes.Provider{
		{ID: "p1", Type: gatewaytypes.ProviderOpenAI, Models: []gatewaytypes.Model{
			{Name: "gpt-4o"},
			{Name: "internal-name", MappedName: "gpt-5"},
		}},
		{ID: "p2", Type: gatewaytypes.ProviderAnthropic, Models: []gatewaytypes.Model{
			{Name: "gpt-4o"}, // same client-facing name as p1's, must collapse
		}},
	})
	e := New(cfg, pricing.New(), zap.NewNop())
	defer e.Close()

	list := e.ListModels()
	assert.Equal(t, "list", list.Object)
	require.Len(t, list.Data, 2)

	ids := map[string]bool{}
	for _, m := range list.Data {
		assert.Equal(t, "model", m.Object)
		assert.Equal(t, "ai", m.OwnedBy)
		ids[m.ID] = true
	}
	assert.True(t, ids["gpt-4o"])
	assert.True(t, ids["gpt-5"])
}

func TestEngine_ReloadReconcilesLimiters(t *testing.T) {
	cfg := newFakeConfigSource([]gatewaytypes.Provider{
		{ID: "p1", Type: gatewaytypes.ProviderOpenAI, Models: []gatewaytypes.Model{{Name: "m"}}, Limits: &gatewaytypes.Limits{RequestsPerMinute: 5}},
	})
	e := New(cfg, pricing.New(), zap.NewNop())
	defer e.Close()

	cfg.setProviders([]gatewaytypes.Provider{
		{ID: "p1", Type: gatewaytypes.ProviderOpenAI, Models: []gatewaytypes.Model{{Name: "m"}}, Limits: &gatewaytypes.Limits{RequestsPerMinute: 10}},
	})

	require.Eventually(t, func() bool {
		snap := e.Usage().Snapshot()
		l, ok := snap["p1"]
		return ok && l[usage.RequestsPerMinute].Points == 10
	}, 2*time.Second, 10*time.Millisecond)
}
