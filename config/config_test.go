package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "openai/gpt-4", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 5, cfg.Output.MaxComponents)
	assert.Equal(t, "docs", cfg.Output.DocsRoot)
	assert.Equal(t, ".gitignore", cfg.Collect.IgnoreFile)
	assert.Equal(t, ":9082", cfg.Server.ListenAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	tomlContent := `
[llm]
model = "anthropic/claude-3.5-sonnet"
max_attempts = 5

[collect]
include = ["*.py"]
max_files = 20

[output]
docs_root = "out"
max_components = 8
strict_coverage = true
`
	path := filepath.Join(t.TempDir(), "cb2docs.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlContent), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.MaxAttempts)
	assert.Equal(t, []string{"*.py"}, cfg.Collect.IncludePatterns)
	assert.Equal(t, 20, cfg.Collect.MaxFiles)
	assert.Equal(t, "out", cfg.Output.DocsRoot)
	assert.Equal(t, 8, cfg.Output.MaxComponents)
	assert.True(t, cfg.Output.StrictCoverage)
	// untouched keys keep their defaults
	assert.Equal(t, ".gitignore", cfg.Collect.IgnoreFile)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Output, cfg.Output)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[invalid toml..."), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb2docs.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm]\nmodel = \"from-file\"\n"), 0644))

	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("MAX_COMPONENTS", "6")
	t.Setenv("OPENROUTER_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, 6, cfg.Output.MaxComponents)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
}

func TestEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("LLM_MAX_ATTEMPTS", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "LLM_MAX_ATTEMPTS")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.MaxComponents = 3
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LLM.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}
