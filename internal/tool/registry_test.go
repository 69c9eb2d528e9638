package tool

import (
	"testing"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_RegistersBuiltins(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for _, id := range []string{
		"view", "ls", "glob", "grep", "ast_grep",
		"edit_file", "multi_edit_file", "write_file", "replace",
		"bash", "webfetch", "todo_read", "todo_write", "batch",
	} {
		_, ok := reg.Get(id)
		assert.True(t, ok, "expected tool %q to be registered", id)
	}
}

func TestRegistry_Catalog(t *testing.T) {
	reg, _ := newTestRegistry(t)
	catalog := reg.Catalog()
	assert.Equal(t, len(reg.IDs()), len(catalog))

	byName := map[string]CatalogEntry{}
	for _, e := range catalog {
		byName[e.Name] = e
	}
	assert.True(t, byName["bash"].RequiresApproval)
	assert.False(t, byName["view"].RequiresApproval)
}

func TestRegistry_RegisterTaskTool(t *testing.T) {
	reg, _ := newTestRegistry(t)
	agentReg := agent.NewRegistry()
	reg.RegisterTaskTool(agentReg)

	tl, ok := reg.Get("task")
	require.True(t, ok)
	assert.Equal(t, "task", tl.ID())

	reg.SetTaskExecutor(&fakeExecutor{result: &TaskResult{Output: "ok"}})
}
