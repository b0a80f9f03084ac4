package dispatch

import (
	"context"
	"testing"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"github.com/BaSui01/agentflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Get_CachesSameAdapterInstance(t *testing.T) {
	d := New()
	p := gatewaytypes.Provider{
		ID:   "groq-main",
		Type: gatewaytypes.ProviderGroq,
		Credentials: gatewaytypes.Credentials{
			APIKey:  "test-key",
			BaseURL: "https://api.groq.com/openai",
		},
	}

	a1, err := d.Get(context.Background(), p)
	require.NoError(t, err)
	a2, err := d.Get(context.Background(), p)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
}

func TestDispatcher_Invalidate_ForcesRebuild(t *testing.T) {
	d := New()
	p := gatewaytypes.Provider{
		ID:   "groq-main",
		Type: gatewaytypes.ProviderGroq,
		Credentials: gatewaytypes.Credentials{
			APIKey:  "test-key",
			BaseURL: "https://api.groq.com/openai",
		},
	}

	a1, err := d.Get(context.Background(), p)
	require.NoError(t, err)

	d.Invalidate()

	a2, err := d.Get(context.Background(), p)
	require.NoError(t, err)
	assert.NotSame(t, a1, a2)
}

func TestDispatcher_Get_MissingCredentialsIsMisconfigured(t *testing.T) {
	d := New()
	p := gatewaytypes.Provider{ID: "broken-openai", Type: gatewaytypes.ProviderOpenAI}

	_, err := d.Get(context.Background(), p)
	require.Error(t, err)

	gwErr, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrProviderMisconfigured, gwErr.Code)
}

func TestDispatcher_Get_UnknownProviderTypeIsUnsupported(t *testing.T) {
	d := New()
	p := gatewaytypes.Provider{ID: "mystery", Type: gatewaytypes.ProviderType("not-a-real-provider")}

	_, err := d.Get(context.Background(), p)
	require.Error(t, err)

	gwErr, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrProviderUnsupported, gwErr.Code)
}

func TestDispatcher_Get_GenericOpenAICompatibleRequiresBaseURL(t *testing.T) {
	d := New()
	p := gatewaytypes.Provider{ID: "custom-1", Type: gatewaytypes.ProviderCustom}

	_, err := d.Get(context.Background(), p)
	require.Error(t, err)

	gwErr, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrProviderMisconfigured, gwErr.Code)
}
