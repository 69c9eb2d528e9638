package agent

import (
	"testing"

	"github.com/steerrt/agentrt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Exists("build"))
	assert.True(t, r.Exists("plan"))
	assert.True(t, r.Exists("general"))
	assert.True(t, r.Exists("explore"))
	assert.Equal(t, 4, r.Count())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	a, err := r.Get("build")
	require.NoError(t, err)
	assert.Equal(t, "build", a.Name)

	_, err = r.Get("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "agent not found")
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	r.Register(&Agent{Name: "custom", Description: "Custom agent", Mode: ModeSubagent})

	a, err := r.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", a.Name)
	assert.Equal(t, "Custom agent", a.Description)
	assert.Equal(t, 5, r.Count())
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	r.Register(&Agent{Name: "temp"})
	assert.True(t, r.Exists("temp"))

	r.Unregister("temp")
	assert.False(t, r.Exists("temp"))
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	agents := r.List()
	assert.Len(t, agents, 4)

	names := make(map[string]bool)
	for _, a := range agents {
		names[a.Name] = true
	}
	assert.True(t, names["build"])
	assert.True(t, names["plan"])
	assert.True(t, names["general"])
	assert.True(t, names["explore"])
}

func TestRegistry_ListPrimary(t *testing.T) {
	r := NewRegistry()

	primary := r.ListPrimary()
	assert.GreaterOrEqual(t, len(primary), 2)
	for _, a := range primary {
		assert.True(t, a.IsPrimary())
	}
}

func TestRegistry_ListSubagents(t *testing.T) {
	r := NewRegistry()

	subagents := r.ListSubagents()
	assert.GreaterOrEqual(t, len(subagents), 2)
	for _, a := range subagents {
		assert.True(t, a.IsSubagent())
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()

	names := r.Names()
	assert.Len(t, names, 4)
	assert.Contains(t, names, "build")
	assert.Contains(t, names, "plan")
	assert.Contains(t, names, "general")
	assert.Contains(t, names, "explore")
}

func TestRegistry_LoadFromConfig(t *testing.T) {
	r := NewRegistry()

	temp := 0.5
	config := map[string]types.AgentRoleConfig{
		"build": {
			Temperature: &temp,
			Model:       "gpt-4",
		},
		"custom-agent": {
			Description: "My custom agent",
			Mode:        "subagent",
			Tools: map[string]bool{
				"view":      true,
				"edit_file": false,
			},
			Policy: &types.WorkspacePolicyConfig{
				Edit: "deny",
				Bash: map[string]interface{}{
					"ls*": "allow",
					"*":   "deny",
				},
			},
		},
	}

	r.LoadFromConfig(config)

	build, err := r.Get("build")
	require.NoError(t, err)
	assert.Equal(t, 0.5, build.Temperature)
	assert.NotNil(t, build.Model)
	assert.Equal(t, "gpt-4", build.Model.ModelID)
	assert.False(t, build.BuiltIn)

	custom, err := r.Get("custom-agent")
	require.NoError(t, err)
	assert.Equal(t, "My custom agent", custom.Description)
	assert.Equal(t, ModeSubagent, custom.Mode)
	assert.True(t, custom.Tools["view"])
	assert.False(t, custom.Tools["edit_file"])
	assert.Equal(t, "deny", string(custom.Policy.Edit))
	assert.Equal(t, "allow", string(custom.Policy.Bash["ls*"]))
	assert.Equal(t, "deny", string(custom.Policy.Bash["*"]))
}

func TestRegistry_LoadFromConfig_MergesPermissions(t *testing.T) {
	r := NewRegistry()

	original, _ := r.Get("plan")
	originalBashCount := len(original.Policy.Bash)

	config := map[string]types.AgentRoleConfig{
		"plan": {
			Policy: &types.WorkspacePolicyConfig{
				Bash: map[string]interface{}{"npm*": "allow"},
			},
		},
	}

	r.LoadFromConfig(config)

	plan, _ := r.Get("plan")
	assert.GreaterOrEqual(t, len(plan.Policy.Bash), originalBashCount)
	assert.Equal(t, "allow", string(plan.Policy.Bash["npm*"]))
}

func TestRegistry_Concurrency(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool, 100)

	for i := 0; i < 50; i++ {
		go func() {
			_, _ = r.Get("build")
			r.List()
			r.Names()
			r.Count()
			done <- true
		}()
	}

	for i := 0; i < 50; i++ {
		go func(i int) {
			r.Register(&Agent{Name: "concurrent"})
			r.Unregister("concurrent")
			done <- true
		}(i)
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}
