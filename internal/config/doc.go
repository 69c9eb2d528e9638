// Package config loads the on-disk GlobalConfig and manages the XDG base
// directories agentrt's runtime state lives under.
//
// # Configuration loading
//
// Load merges configuration from three sources, narrowest wins:
//
//  1. Global config (~/.config/agentrt/agentrt.json[c])
//  2. Project config (<directory>/.agentrt/agentrt.json[c])
//  3. Environment variables (AGENTRT_MODEL, AGENTRT_SMALL_MODEL,
//     ANTHROPIC_API_KEY, OPENAI_API_KEY)
//
// Both .json and .jsonc are accepted; .jsonc comments are stripped with
// tidwall/jsonc before unmarshaling.
//
// # Path management
//
// GetPaths returns the XDG Base Directory Specification paths agentrt uses
// for its storage directory (internal/storage), session database
// (internal/persist), and credential store (internal/credential):
//   - Data: ~/.local/share/agentrt (XDG_DATA_HOME)
//   - Config: ~/.config/agentrt (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/agentrt (XDG_CACHE_HOME)
//   - State: ~/.local/state/agentrt (XDG_STATE_HOME)
package config
