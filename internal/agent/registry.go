package agent

import (
	"fmt"
	"sync"

	"github.com/steerrt/agentrt/internal/workspace/policy"
	"github.com/steerrt/agentrt/pkg/types"
)

// Registry holds the process-wide set of agent roles.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry returns a registry seeded with the built-in roles.
func NewRegistry() *Registry {
	r := &Registry{agents: make(map[string]*Agent)}
	for name, a := range BuiltInAgents() {
		r.agents[name] = a
	}
	return r
}

// Get retrieves a role by name.
func (r *Registry) Get(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", name)
	}
	return a, nil
}

// Register adds or replaces a role.
func (r *Registry) Register(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name] = a
}

// Unregister removes a role by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// List returns every registered role.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	return agents
}

// ListPrimary returns roles eligible as a session's primary agent.
func (r *Registry) ListPrimary() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, a := range r.agents {
		if a.IsPrimary() {
			agents = append(agents, a)
		}
	}
	return agents
}

// ListSubagents returns roles eligible for subagent spawning.
func (r *Registry) ListSubagents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, a := range r.agents {
		if a.IsSubagent() {
			agents = append(agents, a)
		}
	}
	return agents
}

// Names returns every registered role name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Exists reports whether name is a registered role.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Count returns the number of registered roles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LoadFromConfig applies AgentRoleConfig overrides loaded from the
// session-config file, creating new roles or cloning built-ins
// before mutating them so the defaults stay intact.
func (r *Registry) LoadFromConfig(config map[string]types.AgentRoleConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range config {
		a, exists := r.agents[name]
		if !exists {
			a = &Agent{Name: name, Mode: ModePrimary, BuiltIn: false, Tools: make(map[string]bool)}
		} else {
			a = a.Clone()
			a.BuiltIn = false
		}

		if cfg.Description != "" {
			a.Description = cfg.Description
		}
		if cfg.Mode != "" {
			a.Mode = Mode(cfg.Mode)
		}
		if cfg.Model != "" {
			a.Model = &types.ModelRef{ModelID: cfg.Model}
		}
		if cfg.Prompt != "" {
			a.Prompt = cfg.Prompt
		}
		if cfg.Temperature != nil {
			a.Temperature = *cfg.Temperature
		}
		if cfg.TopP != nil {
			a.TopP = *cfg.TopP
		}
		if cfg.Tools != nil {
			if a.Tools == nil {
				a.Tools = make(map[string]bool)
			}
			for k, v := range cfg.Tools {
				a.Tools[k] = v
			}
		}
		if cfg.Policy != nil {
			mergePolicy(&a.Policy, cfg.Policy)
		}

		r.agents[name] = a
	}
}

func mergePolicy(dst *policy.Policy, cfg *types.WorkspacePolicyConfig) {
	if cfg.Edit != "" {
		dst.Edit = policy.Action(cfg.Edit)
	}
	if cfg.WebFetch != "" {
		dst.WebFetch = policy.Action(cfg.WebFetch)
	}
	if cfg.ExternalDir != "" {
		dst.ExternalDir = policy.Action(cfg.ExternalDir)
	}
	if cfg.DoomLoop != "" {
		dst.DoomLoop = policy.Action(cfg.DoomLoop)
	}
	switch bash := cfg.Bash.(type) {
	case string:
		if dst.Bash == nil {
			dst.Bash = make(map[string]policy.Action)
		}
		dst.Bash["*"] = policy.Action(bash)
	case map[string]interface{}:
		if dst.Bash == nil {
			dst.Bash = make(map[string]policy.Action)
		}
		for pattern, action := range bash {
			if s, ok := action.(string); ok {
				dst.Bash[pattern] = policy.Action(s)
			}
		}
	}
}
