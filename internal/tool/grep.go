package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steerrt/agentrt/internal/workspace"
)

const grepDescription = `A powerful content search tool built on ripgrep.

Usage:
- Supports full regex syntax (e.g., "log.*Error", "function\\s+\\w+")
- Filter files with the glob parameter (e.g., "*.js", "**/*.tsx")
- Returns matching lines with file paths and line numbers`

var grepSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string", "description": "The regex pattern to search for"},
		"glob": {"type": "string", "description": "File glob to restrict the search (e.g. \"*.go\")"}
	},
	"required": ["pattern"]
}`)

type grepInput struct {
	Pattern string `json:"pattern"`
	Glob    string `json:"glob,omitempty"`
}

const maxGrepResults = 100

// NewGrepTool searches file contents through ws.
func NewGrepTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("grep", grepDescription, grepSchema, false, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("grep", grepSchema, input); err != nil {
			return nil, err
		}
		var params grepInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		matches, err := ws.Grep(workspace.OpContext{Ctx: ctx, Op: "grep"}, params.Pattern, params.Glob)
		if err != nil {
			return nil, err
		}

		truncated := false
		if len(matches) > maxGrepResults {
			matches = matches[:maxGrepResults]
			truncated = true
		}

		var sb strings.Builder
		for _, m := range matches {
			fmt.Fprintf(&sb, "%s:%d: %s\n", m.Path, m.Line, m.Content)
		}
		if truncated {
			fmt.Fprintf(&sb, "\n(showing first %d matches)", maxGrepResults)
		}

		return &Result{
			Title:  fmt.Sprintf("Found %d matches", len(matches)),
			Output: sb.String(),
			Metadata: map[string]any{
				"pattern":   params.Pattern,
				"count":     len(matches),
				"truncated": truncated,
			},
		}, nil
	})
}
