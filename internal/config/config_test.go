package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/steerrt/agentrt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	oldXDGConfig := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("HOME", tmpDir)
	os.Unsetenv("XDG_CONFIG_HOME")
	t.Cleanup(func() {
		os.Setenv("HOME", oldHome)
		os.Setenv("XDG_CONFIG_HOME", oldXDGConfig)
	})
	return tmpDir
}

func writeProjectConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".agentrt")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, filename), []byte(content), 0644))
}

func TestLoadBasicConfig(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()

	writeProjectConfig(t, tmpDir, "agentrt.json", `{
		"$schema": "https://agentrt.dev/config.json",
		"model": "anthropic/claude-sonnet-4-20250514",
		"smallModel": "anthropic/claude-3-5-haiku-20241022",
		"provider": {
			"anthropic": {"apiKey": "sk-ant-test123"}
		},
		"agent": {
			"coder": {"temperature": 0.7, "topP": 0.9, "tools": {"bash": true}}
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "https://agentrt.dev/config.json", cfg.Schema)
	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "anthropic/claude-3-5-haiku-20241022", cfg.SmallModel)

	anthropic := cfg.Provider["anthropic"]
	assert.Equal(t, "sk-ant-test123", anthropic.APIKey)

	coder := cfg.Agent["coder"]
	require.NotNil(t, coder.Temperature)
	assert.Equal(t, 0.7, *coder.Temperature)
	require.NotNil(t, coder.TopP)
	assert.Equal(t, 0.9, *coder.TopP)
	assert.True(t, coder.Tools["bash"])
}

func TestLoadStripsJSONCComments(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()

	writeProjectConfig(t, tmpDir, "agentrt.jsonc", `{
		// single-line comment
		"model": "anthropic/claude-sonnet-4-20250514",
		/* multi-line
		   comment */
		"provider": {
			"anthropic": {"apiKey": "test-key" // inline comment
			}
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "test-key", cfg.Provider["anthropic"].APIKey)
}

func TestLoadMergesGlobalAndProjectNarrowestWins(t *testing.T) {
	tmpHome := isolateHome(t)
	tmpProject := t.TempDir()

	globalDir := filepath.Join(tmpHome, ".config", "agentrt")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "agentrt.json"), []byte(`{
		"model": "anthropic/claude-sonnet-4",
		"provider": {"anthropic": {"apiKey": "global-key"}},
		"agent": {"coder": {"tools": {"bash": true}}}
	}`), 0644))

	writeProjectConfig(t, tmpProject, "agentrt.json", `{
		"model": "openai/gpt-4o",
		"agent": {"coder": {"tools": {"edit_file": true}}}
	}`)

	cfg, err := Load(tmpProject)
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, "global-key", cfg.Provider["anthropic"].APIKey)
	assert.True(t, cfg.Agent["coder"].Tools["edit_file"])
}

func TestLoadEnvOverridesModel(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()
	writeProjectConfig(t, tmpDir, "agentrt.json", `{"model": "file-model"}`)

	os.Setenv("AGENTRT_MODEL", "env-model")
	defer os.Unsetenv("AGENTRT_MODEL")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model)
}

func TestLoadMCPConfig(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()
	writeProjectConfig(t, tmpDir, "agentrt.json", `{
		"mcp": {
			"filesystem": {
				"type": "local",
				"command": ["npx", "-y", "@modelcontextprotocol/server-filesystem"],
				"environment": {"MCP_ROOT": "/home/user"},
				"enabled": true,
				"timeout": 5000
			}
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	fs := cfg.MCP["filesystem"]
	assert.Equal(t, "local", fs.Type)
	assert.Equal(t, []string{"npx", "-y", "@modelcontextprotocol/server-filesystem"}, fs.Command)
	assert.Equal(t, "/home/user", fs.Environment["MCP_ROOT"])
	require.NotNil(t, fs.Enabled)
	assert.True(t, *fs.Enabled)
	assert.Equal(t, 5000, fs.Timeout)
}

func TestLoadCommandConfig(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()
	writeProjectConfig(t, tmpDir, "agentrt.json", `{
		"command": {
			"review": {"template": "Review this PR", "description": "Code review", "agent": "build"}
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	review := cfg.Command["review"]
	assert.Equal(t, "Review this PR", review.Template)
	assert.Equal(t, "Code review", review.Description)
	assert.Equal(t, "build", review.Agent)
}

func TestLoadPolicyConfig(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()
	writeProjectConfig(t, tmpDir, "agentrt.json", `{
		"policy": {
			"edit": "allow",
			"bash": {"rm": "deny", "git push": "deny"},
			"webfetch": "allow",
			"externalDirectory": "ask",
			"doomLoop": "ask"
		}
	}`)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	require.NotNil(t, cfg.Policy)
	assert.Equal(t, "allow", cfg.Policy.Edit)
	assert.Equal(t, "allow", cfg.Policy.WebFetch)
	assert.Equal(t, "ask", cfg.Policy.ExternalDir)

	bashPerm, ok := cfg.Policy.Bash.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "deny", bashPerm["rm"])
}

func TestMergeConfigFunction(t *testing.T) {
	t.Run("merges providers", func(t *testing.T) {
		target := &types.GlobalConfig{
			Provider: map[string]types.ProviderConfig{"anthropic": {APIKey: "a"}},
		}
		source := &types.GlobalConfig{
			Provider: map[string]types.ProviderConfig{"openai": {APIKey: "b"}},
		}

		mergeConfig(target, source)

		assert.Len(t, target.Provider, 2)
		assert.Equal(t, "a", target.Provider["anthropic"].APIKey)
		assert.Equal(t, "b", target.Provider["openai"].APIKey)
	})

	t.Run("source overrides target for same key", func(t *testing.T) {
		target := &types.GlobalConfig{
			Provider: map[string]types.ProviderConfig{"openai": {APIKey: "old"}},
		}
		source := &types.GlobalConfig{
			Provider: map[string]types.ProviderConfig{"openai": {APIKey: "new"}},
		}

		mergeConfig(target, source)

		assert.Equal(t, "new", target.Provider["openai"].APIKey)
	})

	t.Run("does not overwrite with empty model", func(t *testing.T) {
		target := &types.GlobalConfig{Model: "anthropic/claude-sonnet-4"}
		source := &types.GlobalConfig{SmallModel: "anthropic/claude-3-5-haiku"}

		mergeConfig(target, source)

		assert.Equal(t, "anthropic/claude-sonnet-4", target.Model)
		assert.Equal(t, "anthropic/claude-3-5-haiku", target.SmallModel)
	})
}

func TestApplyEnvOverridesFunction(t *testing.T) {
	t.Run("AGENTRT_MODEL overrides config", func(t *testing.T) {
		os.Setenv("AGENTRT_MODEL", "env-override-model")
		defer os.Unsetenv("AGENTRT_MODEL")

		config := &types.GlobalConfig{Model: "config-model", Provider: make(map[string]types.ProviderConfig)}
		applyEnvOverrides(config)

		assert.Equal(t, "env-override-model", config.Model)
	})

	t.Run("provider API key env vars fill in when unset", func(t *testing.T) {
		os.Setenv("ANTHROPIC_API_KEY", "env-key")
		defer os.Unsetenv("ANTHROPIC_API_KEY")

		config := &types.GlobalConfig{Provider: make(map[string]types.ProviderConfig)}
		applyEnvOverrides(config)

		assert.Equal(t, "env-key", config.Provider["anthropic"].APIKey)
	})
}
