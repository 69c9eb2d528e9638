package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/steerrt/agentrt/pkg/types"
	"github.com/tidwall/jsonc"
)

// Load loads configuration from multiple sources (priority order, narrowest
// wins):
//  1. Global config (~/.config/agentrt/agentrt.json[c])
//  2. Project config (directory/.agentrt/agentrt.json[c])
//  3. Environment variables
func Load(directory string) (*types.GlobalConfig, error) {
	config := &types.GlobalConfig{
		Provider: make(map[string]types.ProviderConfig),
		Agent:    make(map[string]types.AgentRoleConfig),
		Command:  make(map[string]types.CommandConfig),
		MCP:      make(map[string]types.MCPConfig),
	}

	globalPath := GetPaths().Config
	loadConfigFile(filepath.Join(globalPath, "agentrt.json"), config)
	loadConfigFile(filepath.Join(globalPath, "agentrt.jsonc"), config)

	if directory != "" {
		loadConfigFile(filepath.Join(directory, ".agentrt", "agentrt.json"), config)
		loadConfigFile(filepath.Join(directory, ".agentrt", "agentrt.jsonc"), config)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile reads one config file, stripping JSONC comments with
// tidwall/jsonc before unmarshaling, and merges it into config. A missing
// file is not an error — it simply contributes nothing.
func loadConfigFile(path string, config *types.GlobalConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	data = jsonc.ToJSON(data)

	var fileConfig types.GlobalConfig
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// mergeConfig merges source into target, source winning on conflicts.
func mergeConfig(target, source *types.GlobalConfig) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SmallModel != "" {
		target.SmallModel = source.SmallModel
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = make(map[string]types.AgentRoleConfig)
		}
		for k, v := range source.Agent {
			target.Agent[k] = v
		}
	}

	if source.Command != nil {
		if target.Command == nil {
			target.Command = make(map[string]types.CommandConfig)
		}
		for k, v := range source.Command {
			target.Command[k] = v
		}
	}

	if source.MCP != nil {
		if target.MCP == nil {
			target.MCP = make(map[string]types.MCPConfig)
		}
		for k, v := range source.MCP {
			target.MCP[k] = v
		}
	}

	if source.Policy != nil {
		target.Policy = source.Policy
	}
	if source.Watcher != nil {
		target.Watcher = source.Watcher
	}
}

// applyEnvOverrides applies the handful of env vars that override config
// values without requiring a file on disk.
func applyEnvOverrides(config *types.GlobalConfig) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]types.ProviderConfig)
			}
			p := config.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("AGENTRT_MODEL"); model != "" {
		config.Model = model
	}
	if smallModel := os.Getenv("AGENTRT_SMALL_MODEL"); smallModel != "" {
		config.SmallModel = smallModel
	}
}

// Save writes config to path as indented JSON, creating parent directories
// as needed.
func Save(config *types.GlobalConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
