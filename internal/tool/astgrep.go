package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steerrt/agentrt/internal/workspace"
)

const astGrepDescription = `Structural code search using ast-grep patterns.

Usage:
- pattern is an ast-grep structural pattern, e.g. "func $NAME($$$ARGS) { $$$ }"
- lang restricts matching to a language (go, ts, py, ...); optional
- glob restricts the search to matching file paths; optional
- Falls back to a plain-text search if ast-grep isn't available`

var astGrepSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string", "description": "The ast-grep structural pattern"},
		"lang": {"type": "string", "description": "Language to match (go, ts, py, ...)"},
		"glob": {"type": "string", "description": "File glob to restrict the search"}
	},
	"required": ["pattern"]
}`)

type astGrepInput struct {
	Pattern string `json:"pattern"`
	Lang    string `json:"lang,omitempty"`
	Glob    string `json:"glob,omitempty"`
}

// NewAstGrepTool runs a structural code search through ws.
func NewAstGrepTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("ast_grep", astGrepDescription, astGrepSchema, false, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("ast_grep", astGrepSchema, input); err != nil {
			return nil, err
		}
		var params astGrepInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		matches, err := ws.AstGrep(workspace.OpContext{Ctx: ctx, Op: "ast_grep"}, params.Pattern, params.Lang, params.Glob)
		if err != nil {
			return nil, err
		}

		var sb strings.Builder
		for _, m := range matches {
			fmt.Fprintf(&sb, "%s:%d: %s\n", m.Path, m.Line, m.Content)
		}

		return &Result{
			Title:  fmt.Sprintf("Found %d structural matches", len(matches)),
			Output: sb.String(),
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"lang":    params.Lang,
				"count":   len(matches),
			},
		}, nil
	})
}
