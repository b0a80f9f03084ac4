package configsource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProvidersFile(t *testing.T, path, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
}

func TestFileSource_LoadsInitialSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	writeProvidersFile(t, path, `
providers:
  - id: groq-main
    type: groq
    credentials:
      api_key: test
      base_url: https://api.groq.com/openai
    models:
      - name: llama-3.3-70b
`)

	src, err := NewFileSource(path, nil)
	require.NoError(t, err)
	defer src.Close()

	providers := src.Providers()
	require.Len(t, providers, 1)
	assert.Equal(t, "groq-main", providers[0].ID)
}

func TestFileSource_ReloadsAndNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	writeProvidersFile(t, path, `
providers:
  - id: p1
    type: openai
    models: [{name: gpt-4o}]
`)

	src, err := NewFileSource(path, nil)
	require.NoError(t, err)
	defer src.Close()

	sub := src.Subscribe()

	writeProvidersFile(t, path, `
providers:
  - id: p1
    type: openai
    models: [{name: gpt-4o}]
  - id: p2
    type: anthropic
    models: [{name: claude-sonnet}]
`)

	select {
	case <-sub:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}

	assert.Len(t, src.Providers(), 2)
}
