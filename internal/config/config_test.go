package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
api_key: "sk-test-secret-123"
endpoint: "https://api.example.com/v1/chat/completions"
model: "glm-4.5"
system_prompt: "你是苏州AI产业调研网站的助手"
max_token: 1024
temperature: 0.6
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "sk-test-secret-123", cfg.APIKey)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", cfg.Endpoint)
	assert.Equal(t, "glm-4.5", cfg.Model)
	require.NotNil(t, cfg.MaxToken)
	assert.Equal(t, 1024, *cfg.MaxToken)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.6, *cfg.Temperature, 1e-9)
}

func TestParseMaxTokenAlias(t *testing.T) {
	cfg, err := Parse([]byte("endpoint: e\nmodel: m\nmax-token: 256\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.MaxToken)
	assert.Equal(t, 256, *cfg.MaxToken)

	// max_token 优先
	cfg, err = Parse([]byte("max_token: 10\nmax-token: 20\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, *cfg.MaxToken)
}

func TestParseDropsNonPositiveMaxToken(t *testing.T) {
	cfg, err := Parse([]byte("max_token: 0\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.MaxToken)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("api_key: [unterminated"))
	assert.Error(t, err)
}

func TestPublicNeverCarriesKey(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	data, err := json.Marshal(cfg.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-test-secret-123")
	assert.NotContains(t, string(data), "api_key")
	assert.Contains(t, string(data), `"system_prompt"`)
}

func TestPublicIsACopy(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	pub := cfg.Public()
	*pub.MaxToken = 1
	assert.Equal(t, 1024, *cfg.MaxToken)
}

func TestValidateForwarding(t *testing.T) {
	cfg := &ServerSecretConfig{}
	assert.ErrorIs(t, cfg.ValidateForwarding(), ErrMissingCredential)

	cfg.APIKey = "k"
	assert.ErrorIs(t, cfg.ValidateForwarding(), ErrMissingEndpoint)

	cfg.Endpoint = "http://x"
	assert.NoError(t, cfg.ValidateForwarding())
}

func TestModelConfigValidate(t *testing.T) {
	assert.ErrorIs(t, (&ModelConfig{Model: "m"}).Validate(), ErrMissingEndpoint)
	assert.ErrorIs(t, (&ModelConfig{Endpoint: "e"}).Validate(), ErrMissingModel)
	assert.NoError(t, (&ModelConfig{Endpoint: "e", Model: "m"}).Validate())
}

func TestLoadRereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai-model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: a\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Model)

	require.NoError(t, os.WriteFile(path, []byte("model: b\n"), 0644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b", cfg.Model)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvConfigPath, "")

	got, err := ResolvePath(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "config", "ai-model.yaml"), got)

	t.Setenv(EnvConfigPath, "secrets/model.yaml")
	got, err = ResolvePath(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "secrets", "model.yaml"), got)

	abs := filepath.Join(t.TempDir(), "flag.yaml")
	got, err = ResolvePath(root, abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)
}
