package registry

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/catalog"
	"github.com/Fayeblade1488/venicebridge/transport"
)

const providersYAML = `providers:
  - id: venice
    name: Venice.ai
    base_url: https://api.venice.ai/api/v1
    api_keys:
      openai: ${VENICEBRIDGE_TEST_KEY}
    models:
      - id: venice-uncensored
        name: Venice Uncensored
        context: 32768
      - id: qwen3-235b
        name: Venice Large
  - id: local
    name: Local llama
    base_url: http://localhost:8080/v1
    api_keys:
      openai: unused
`

func writeProviders(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsEmptyRegistry(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Providers())
}

func TestLoadInterpolatesEnvironment(t *testing.T) {
	t.Setenv("VENICEBRIDGE_TEST_KEY", "vk-from-env")
	reg, err := Load(writeProviders(t, providersYAML))
	require.NoError(t, err)

	require.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"venice", "local"}, reg.Providers())

	cfg, err := reg.Resolve("venice")
	require.NoError(t, err)
	assert.Equal(t, "vk-from-env", cfg.AuthKey)
	assert.Equal(t, "https://api.venice.ai/api/v1", cfg.BaseURL)
	assert.Equal(t, "venice-uncensored", cfg.DefaultModel)
	assert.Equal(t, venicebridge.DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, venicebridge.DefaultReadTimeout, cfg.ReadTimeout)
}

func TestResolveFallbackKeyIsDeterministic(t *testing.T) {
	const multiKeyYAML = `providers:
  - id: multi
    name: Multi-key
    base_url: http://localhost:9090/v1
    api_keys:
      zebra: vk-zebra
      anthropic: vk-anthropic
      mistral: vk-mistral
`
	for i := 0; i < 5; i++ {
		reg, err := Load(writeProviders(t, multiKeyYAML))
		require.NoError(t, err)

		cfg, err := reg.Resolve("multi")
		require.NoError(t, err)
		assert.Equal(t, "vk-anthropic", cfg.AuthKey)
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	reg, err := Load(writeProviders(t, providersYAML))
	require.NoError(t, err)

	_, err = reg.Resolve("nonexistent")
	require.Error(t, err)
	assert.True(t, venicebridge.IsUnknownProvider(err))
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeProviders(t, "providers: [unclosed"))
	require.Error(t, err)
	assert.True(t, venicebridge.IsDecode(err))
}

func TestHasModel(t *testing.T) {
	reg, err := Load(writeProviders(t, providersYAML))
	require.NoError(t, err)

	assert.True(t, reg.HasModel("venice", "qwen3-235b"))
	assert.False(t, reg.HasModel("venice", "missing-model"))
	assert.False(t, reg.HasModel("nonexistent", "qwen3-235b"))

	// A provider with no configured model list accepts any model.
	assert.True(t, reg.HasModel("local", "anything"))
}

func TestModels(t *testing.T) {
	reg, err := Load(writeProviders(t, providersYAML))
	require.NoError(t, err)

	models := reg.Models("venice")
	require.Len(t, models, 2)
	assert.Equal(t, "venice-uncensored", models[0].ID)
	assert.Equal(t, 32768, models[0].Context)
	assert.Nil(t, reg.Models("nonexistent"))
}

// exportTransport serves a canned model list for Export tests.
type exportTransport struct{}

func (exportTransport) Do(ctx context.Context, req transport.Request) (*transport.RawResponse, error) {
	return &transport.RawResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body: []byte(`{"data":[
			{"id":"venice-uncensored","type":"text","model_spec":{"name":"Venice Uncensored","availableContextTokens":32768,"capabilities":{"supportsFunctionCalling":true}}},
			{"id":"flux-dev-uncensored","type":"image","model_spec":{"name":"FLUX Custom"}}
		]}`),
	}, nil
}

func (exportTransport) Provider() venicebridge.ProviderConfig {
	return venicebridge.Venice("vk-super-secret")
}

func TestExportNeverWritesCredential(t *testing.T) {
	provider := venicebridge.Venice("vk-super-secret")
	cat := catalog.New(exportTransport{})
	path := filepath.Join(t.TempDir(), "ai", "providers.yaml")

	res, err := Export(context.Background(), cat, provider, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ModelCount)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "vk-super-secret")
	assert.Contains(t, string(data), KeyPlaceholder)

	// Exported file is itself loadable.
	var doc struct {
		Providers []Provider `yaml:"providers"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Providers, 1)
	assert.Equal(t, "venice", doc.Providers[0].ID)
	require.Len(t, doc.Providers[0].Models, 2)
	assert.True(t, doc.Providers[0].Models[0].Abilities.Tools.Supported)
}

func TestExportRoundTripsThroughLoad(t *testing.T) {
	t.Setenv("VENICE_API_KEY", "vk-runtime")
	provider := venicebridge.Venice("vk-super-secret")
	cat := catalog.New(exportTransport{})
	path := filepath.Join(t.TempDir(), "providers.yaml")

	_, err := Export(context.Background(), cat, provider, path)
	require.NoError(t, err)

	reg, err := Load(path)
	require.NoError(t, err)
	cfg, err := reg.Resolve("venice")
	require.NoError(t, err)
	assert.Equal(t, "vk-runtime", cfg.AuthKey)
}
