package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/workspace"
)

const editFileDescription = `Performs an exact string replacement in a file.

Usage:
- file_path may be absolute or relative to the workspace root
- old_string must exist in the file (exact match required)
- new_string replaces old_string
- The edit FAILS if old_string is not unique in the file
- An empty old_string on a new file creates it with new_string as content`

var editFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"file_path": {"type": "string", "description": "Path to the file to edit"},
		"old_string": {"type": "string", "description": "The exact text to replace"},
		"new_string": {"type": "string", "description": "The text to replace it with"}
	},
	"required": ["file_path", "old_string", "new_string"]
}`)

type editFileInput struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// NewEditFileTool performs a single find-and-replace through ws.
func NewEditFileTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("edit_file", editFileDescription, editFileSchema, true, editFileExecute("edit_file", ws))
}

// editFileExecute is shared by edit_file and its replace alias").
func editFileExecute(toolName string, ws workspace.Workspace) func(context.Context, json.RawMessage, *Context) (*Result, error) {
	return func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams(toolName, editFileSchema, input); err != nil {
			return nil, err
		}
		var params editFileInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		if params.OldString == params.NewString {
			return nil, apperror.ToolInvalidParams(toolName, "old_string and new_string must differ")
		}

		oc := workspace.OpContext{Ctx: ctx, Op: toolName}
		result, err := ws.ApplyEdits(oc, params.FilePath, []workspace.FileEdit{{OldString: params.OldString, NewString: params.NewString}})
		if err != nil {
			if retried, rerr := fuzzyEdit(ws, oc, params); rerr == nil {
				return retried, nil
			}
			return nil, err
		}

		return editResultToToolResult(result), nil
	}
}

// fuzzyEdit retries an edit whose old_string doesn't match exactly, first
// normalizing line endings, then falling back to nearest-neighbor
// Levenshtein matching when an exact match fails.
func fuzzyEdit(ws workspace.Workspace, oc workspace.OpContext, params editFileInput) (*Result, error) {
	content, err := ws.ReadFile(oc, params.FilePath, 0, 0)
	if err != nil {
		return nil, err
	}

	normalizedOld := strings.ReplaceAll(params.OldString, "\r\n", "\n")
	normalizedContent := strings.ReplaceAll(content, "\r\n", "\n")
	if strings.Contains(normalizedContent, normalizedOld) {
		result, err := ws.ApplyEdits(oc, params.FilePath, []workspace.FileEdit{{OldString: normalizedOld, NewString: params.NewString}})
		if err != nil {
			return nil, err
		}
		return editResultToToolResult(result), nil
	}

	match, sim := findBestMatch(content, params.OldString)
	if match == "" || sim < 0.7 {
		return nil, apperror.ToolInvalidParams("edit_file", "old_string not found in file")
	}
	result, err := ws.ApplyEdits(oc, params.FilePath, []workspace.FileEdit{{OldString: match, NewString: params.NewString}})
	if err != nil {
		return nil, err
	}
	out := editResultToToolResult(result)
	out.Metadata["similarity"] = sim
	return out, nil
}

func editResultToToolResult(r *workspace.EditResult) *Result {
	diffText, additions, deletions := buildDiffMetadata(r.Path, r.Before, r.After, "")
	title := fmt.Sprintf("Edited %s", filepath.Base(r.Path))
	if r.Created {
		title = fmt.Sprintf("Created %s", filepath.Base(r.Path))
	}
	return &Result{
		Title:  title,
		Output: diffText,
		Metadata: map[string]any{
			"file":      r.Path,
			"created":   r.Created,
			"additions": additions,
			"deletions": deletions,
		},
	}
}

// findBestMatch finds the substring of text most similar to target by
// normalized Levenshtein similarity.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	targetLines := strings.Split(target, "\n")

	bestMatch := ""
	bestSimilarity := 0.0

	if len(targetLines) == 1 {
		for _, line := range lines {
			if sim := similarity(line, target); sim > bestSimilarity {
				bestSimilarity, bestMatch = sim, line
			}
		}
		return bestMatch, bestSimilarity
	}

	targetLen := len(targetLines)
	for i := 0; i <= len(lines)-targetLen; i++ {
		block := strings.Join(lines[i:i+targetLen], "\n")
		if sim := similarity(block, target); sim > bestSimilarity {
			bestSimilarity, bestMatch = sim, block
		}
	}
	return bestMatch, bestSimilarity
}

func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > 10000 || len(b) > 10000 {
		maxLen, minLen := len(a), len(b)
		if minLen > maxLen {
			maxLen, minLen = minLen, maxLen
		}
		return float64(minLen) / float64(maxLen)
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}
