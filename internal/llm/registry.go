package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/steerrt/agentrt/pkg/types"
)

// Registry holds every configured Client, keyed by provider id, and resolves
// the default model a new session starts with.
type Registry struct {
	mu           sync.RWMutex
	clients      map[string]Client
	defaultModel string // "provider/model", overrides the built-in fallback
}

// NewRegistry creates an empty registry. defaultModel is a "provider/model"
// string from session config; pass "" to
// use the built-in fallback order.
func NewRegistry(defaultModel string) *Registry {
	return &Registry{
		clients:      make(map[string]Client),
		defaultModel: defaultModel,
	}
}

// Register adds a client to the registry, replacing any prior client with
// the same ID.
func (r *Registry) Register(client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID()] = client
}

// Get retrieves a client by provider ID.
func (r *Registry) Get(providerID string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return client, nil
}

// List returns every registered client.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// GetModel retrieves a specific model from a specific provider.
func (r *Registry) GetModel(providerID, modelID string) (*types.Model, error) {
	client, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}
	for _, m := range client.Models() {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("model not found: %s/%s", providerID, modelID)
}

// AllModels returns every model from every registered client, sorted by a
// rough quality priority so UIs and the default-model fallback pick a
// reasonable model first.
func (r *Registry) AllModels() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var models []types.Model
	for _, c := range r.clients {
		models = append(models, c.Models()...)
	}
	sort.Slice(models, func(i, j int) bool {
		return modelPriority(models[i].ID) > modelPriority(models[j].ID)
	})
	return models
}

// DefaultModel resolves the model a new session starts with: the
// configured default, else Claude Sonnet if available, else the
// highest-priority model from any registered provider.
func (r *Registry) DefaultModel() (*types.Model, error) {
	if r.defaultModel != "" {
		providerID, modelID := ParseModelString(r.defaultModel)
		return r.GetModel(providerID, modelID)
	}

	if m, err := r.GetModel("anthropic", "claude-sonnet-4-20250514"); err == nil {
		return m, nil
	}

	models := r.AllModels()
	if len(models) == 0 {
		return nil, fmt.Errorf("no models available")
	}
	return &models[0], nil
}

// ParseModelString parses a "provider/model" string. A string with no slash
// is treated as a bare model id with an empty provider.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

func modelPriority(modelID string) int {
	switch {
	case strings.Contains(modelID, "gpt-5"):
		return 100
	case strings.Contains(modelID, "claude-sonnet-4"):
		return 90
	case strings.Contains(modelID, "claude-opus"):
		return 85
	case strings.Contains(modelID, "gpt-4o"):
		return 80
	case strings.Contains(modelID, "claude-3-5"), strings.Contains(modelID, "claude-haiku-4-5"):
		return 75
	default:
		return 50
	}
}

// CredentialResolver resolves a provider's API key and base URL.
// credential.Resolver implements it; InitializeClients falls back to env-var
// lookups when the resolver has no key for a provider.
type CredentialResolver interface {
	Resolve(providerID string) (apiKey, baseURL string, err error)
}

// ProviderSettings is one entry of a session or global config's provider
// map, keyed by provider id in the caller.
type ProviderSettings struct {
	Npm     string // "@ai-sdk/anthropic" | "@ai-sdk/openai" | "@ai-sdk/openai-compatible"
	Model   string
	Disable bool
}

// InitializeClients builds and registers a Client for every entry in
// settings, resolving credentials through resolver first and falling back
// to ANTHROPIC_API_KEY / OPENAI_API_KEY for local development when resolver
// has nothing for that provider.
func InitializeClients(settings map[string]ProviderSettings, resolver CredentialResolver, defaultModel string) *Registry {
	registry := NewRegistry(defaultModel)
	configured := make(map[string]bool)

	for name, cfg := range settings {
		if cfg.Disable {
			continue
		}
		configured[name] = true

		apiKey, baseURL := resolveCredential(resolver, name)
		npm := cfg.Npm
		if npm == "" {
			npm = inferNpmFromProviderName(name)
		}

		var client Client
		var err error
		switch npm {
		case npmAnthropic:
			if apiKey != "" {
				client, err = NewAnthropicClient(AnthropicConfig{ID: name, APIKey: apiKey, BaseURL: baseURL})
			}
		case npmOpenAI, npmOpenAICompatible:
			if apiKey != "" || baseURL != "" {
				client, err = NewOpenAIClient(OpenAIConfig{ID: name, APIKey: apiKey, BaseURL: baseURL})
			}
		}
		if err != nil || client == nil {
			continue
		}
		registry.Register(client)
	}

	if !configured["anthropic"] {
		if apiKey, baseURL := resolveCredential(resolver, "anthropic"); apiKey != "" {
			if client, err := NewAnthropicClient(AnthropicConfig{ID: "anthropic", APIKey: apiKey, BaseURL: baseURL}); err == nil {
				registry.Register(client)
			}
		}
	}
	if !configured["openai"] {
		if apiKey, baseURL := resolveCredential(resolver, "openai"); apiKey != "" {
			if client, err := NewOpenAIClient(OpenAIConfig{ID: "openai", APIKey: apiKey, BaseURL: baseURL}); err == nil {
				registry.Register(client)
			}
		}
	}

	return registry
}

func resolveCredential(resolver CredentialResolver, providerID string) (apiKey, baseURL string) {
	if resolver != nil {
		if key, url, err := resolver.Resolve(providerID); err == nil && key != "" {
			return key, url
		}
	}
	switch providerID {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_BASE_URL")
	case "openai":
		return os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL")
	default:
		return "", ""
	}
}

const (
	npmAnthropic        = "@ai-sdk/anthropic"
	npmOpenAI           = "@ai-sdk/openai"
	npmOpenAICompatible = "@ai-sdk/openai-compatible"
)

func inferNpmFromProviderName(name string) string {
	switch name {
	case "anthropic", "claude":
		return npmAnthropic
	case "openai":
		return npmOpenAI
	default:
		return ""
	}
}
