package workspace

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// BashCommand is one parsed command within a (possibly compound) shell line.
type BashCommand struct {
	Name       string
	Args       []string
	Subcommand string // first non-flag argument, e.g. "commit" in "git commit"
}

// ParseBashCommand splits a shell command line into its constituent simple
// commands.
func ParseBashCommand(command string) ([]BashCommand, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(false))

	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("parse bash command: %w", err)
	}

	var commands []BashCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			if cmd := extractCommand(call); cmd != nil {
				commands = append(commands, *cmd)
			}
		}
		return true
	})
	return commands, nil
}

func extractCommand(call *syntax.CallExpr) *BashCommand {
	if len(call.Args) == 0 {
		return nil
	}
	cmd := &BashCommand{Name: wordToString(call.Args[0])}
	if cmd.Name == "" {
		return nil
	}
	for _, arg := range call.Args[1:] {
		argStr := wordToString(arg)
		cmd.Args = append(cmd.Args, argStr)
		if cmd.Subcommand == "" && !strings.HasPrefix(argStr, "-") {
			cmd.Subcommand = argStr
		}
	}
	return cmd
}

func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}

// DangerousCommands modify files and need path validation before execution.
var DangerousCommands = map[string]bool{
	"cd": true, "rm": true, "cp": true, "mv": true, "mkdir": true,
	"touch": true, "chmod": true, "chown": true, "rmdir": true, "dd": true,
}

// IsDangerousCommand reports whether name needs path validation.
func IsDangerousCommand(name string) bool { return DangerousCommands[name] }

// ExtractPaths pulls the non-flag, non-mode arguments out of cmd.
func ExtractPaths(cmd BashCommand) []string {
	var paths []string
	for _, arg := range cmd.Args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if cmd.Name == "chmod" && len(arg) > 0 {
			c := arg[0]
			if c >= '0' && c <= '9' || c == 'u' || c == 'g' || c == 'o' || c == 'a' || c == '+' || c == '=' {
				continue
			}
		}
		paths = append(paths, arg)
	}
	return paths
}

// ResolvePath resolves path to an absolute path rooted at workDir. A path
// starting with "~" is returned unchanged, not expanded.
func ResolvePath(ctx context.Context, path, workDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if strings.HasPrefix(path, "~") {
		return path, nil
	}
	cmd := exec.CommandContext(ctx, "realpath", "-m", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return filepath.Clean(filepath.Join(workDir, path)), nil
	}
	return strings.TrimSpace(string(output)), nil
}

// IsWithinDir reports whether path is dir itself or nested under it —
// used to gate the external_directory policy category.
func IsWithinDir(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

// MatchBashPattern finds the most specific pattern match for cmd in a
// pattern->action map, trying "name subcommand *", "name *", "name", "*".
func MatchBashPattern(cmd BashCommand, patterns map[string]string) (string, bool) {
	if cmd.Subcommand != "" {
		if action, ok := patterns[cmd.Name+" "+cmd.Subcommand+" *"]; ok {
			return action, true
		}
	}
	if action, ok := patterns[cmd.Name+" *"]; ok {
		return action, true
	}
	if action, ok := patterns[cmd.Name]; ok {
		return action, true
	}
	if action, ok := patterns["*"]; ok {
		return action, true
	}
	return "", false
}

// BuildBashPattern derives the canonical always-approve pattern for cmd:
// "git commit *" or "ls *".
func BuildBashPattern(cmd BashCommand) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}
