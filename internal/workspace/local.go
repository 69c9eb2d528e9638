package workspace

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/pkg/types"
)

// LocalEnvironmentTTL is how long a LocalWorkspace's cached EnvironmentInfo
// is trusted before a mutating operation or the TTL forces a refresh — local
// is cheap to re-probe, so its TTL is short.
const LocalEnvironmentTTL = 30 * time.Second

// editLocks serializes concurrent apply_edits/write_file on the same path,
// process-wide.
var editLocks sync.Map // path -> *sync.Mutex

func lockFor(path string) *sync.Mutex {
	v, _ := editLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// LocalWorkspace operates directly on a local directory.
type LocalWorkspace struct {
	id      string
	root    string
	useJJ   bool

	mu       sync.Mutex
	env      *EnvironmentInfo
	envAt    time.Time
}

// NewLocalWorkspace returns a workspace rooted at root.
func NewLocalWorkspace(id, root string, useJJ bool) *LocalWorkspace {
	return &LocalWorkspace{id: id, root: root, useJJ: useJJ}
}

func (w *LocalWorkspace) Metadata() Metadata {
	return Metadata{ID: w.id, Type: types.WorkspaceLocal, Location: w.root}
}

func (w *LocalWorkspace) WorkingDirectory() string { return w.root }

func (w *LocalWorkspace) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.root, path)
}

func (w *LocalWorkspace) ListFiles(oc OpContext, pattern string) ([]string, error) {
	return w.Glob(oc, pattern)
}

func (w *LocalWorkspace) ReadFile(oc OpContext, path string, offset, limit int) (string, error) {
	full := w.resolve(path)
	f, err := os.Open(full)
	if err != nil {
		return "", apperror.ToolIO("read_file", err)
	}
	defer f.Close()

	if limit <= 0 {
		limit = 2000
	}
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if offset > 0 && lineNum <= offset {
			continue
		}
		if len(lines) >= limit {
			break
		}
		line := scanner.Text()
		if len(line) > 2000 {
			line = line[:2000] + "..."
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (w *LocalWorkspace) ListDirectory(oc OpContext, path string) ([]string, error) {
	full := w.resolve(path)
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, apperror.ToolIO("list_directory", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Glob runs ripgrep's file enumerator, which honors .gitignore natively.
func (w *LocalWorkspace) Glob(oc OpContext, pattern string) ([]string, error) {
	cmd := exec.CommandContext(oc.Ctx, "rg", "--files", "--glob", pattern)
	cmd.Dir = w.root
	output, _ := cmd.Output()

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (w *LocalWorkspace) Grep(oc OpContext, pattern, pathFilter string) ([]GrepMatch, error) {
	args := []string{"--line-number", "--with-filename", "--color=never"}
	if pathFilter != "" {
		args = append(args, "--glob", pathFilter)
	}
	args = append(args, pattern, w.root)

	cmd := exec.CommandContext(oc.Ctx, "rg", args...)
	output, _ := cmd.Output()
	return parseRipgrepLines(string(output)), nil
}

// AstGrep shells out to the ast-grep CLI for structural matches, falling
// back to plain-text Grep when the binary or language isn't available.
func (w *LocalWorkspace) AstGrep(oc OpContext, pattern, lang, pathFilter string) ([]GrepMatch, error) {
	args := []string{"run", "--pattern", pattern, "--json=compact"}
	if lang != "" {
		args = append(args, "--lang", lang)
	}
	if pathFilter != "" {
		args = append(args, pathFilter)
	} else {
		args = append(args, w.root)
	}
	cmd := exec.CommandContext(oc.Ctx, "ast-grep", args...)
	cmd.Dir = w.root
	if output, err := cmd.Output(); err == nil {
		return parseRipgrepLines(string(output)), nil
	}
	return w.Grep(oc, pattern, pathFilter)
}

func (w *LocalWorkspace) ApplyEdits(oc OpContext, path string, edits []FileEdit) (*EditResult, error) {
	full := w.resolve(path)
	lock := lockFor(full)
	lock.Lock()
	defer lock.Unlock()

	var before string
	created := false
	data, err := os.ReadFile(full)
	switch {
	case err == nil:
		before = string(data)
	case os.IsNotExist(err):
		if len(edits) == 0 || edits[0].OldString != "" {
			return nil, apperror.ToolIO("apply_edits", err)
		}
		created = true
	default:
		return nil, apperror.ToolIO("apply_edits", err)
	}

	after := before
	for i, edit := range edits {
		if i == 0 && edit.OldString == "" {
			after = edit.NewString
			continue
		}
		count := strings.Count(after, edit.OldString)
		if count != 1 {
			return nil, apperror.ToolInvalidParams("apply_edits",
				"old_string must match exactly once, found "+strconv.Itoa(count))
		}
		after = strings.Replace(after, edit.OldString, edit.NewString, 1)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, apperror.ToolIO("apply_edits", err)
	}
	if err := os.WriteFile(full, []byte(after), 0o644); err != nil {
		return nil, apperror.ToolIO("apply_edits", err)
	}

	w.InvalidateEnvironmentCache()
	return &EditResult{Path: path, Before: before, After: after, Created: created}, nil
}

func (w *LocalWorkspace) WriteFile(oc OpContext, path, content string) error {
	full := w.resolve(path)
	lock := lockFor(full)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return apperror.ToolIO("write_file", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return apperror.ToolIO("write_file", err)
	}
	w.InvalidateEnvironmentCache()
	return nil
}

func (w *LocalWorkspace) Environment(oc OpContext) (EnvironmentInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.env != nil && time.Since(w.envAt) < LocalEnvironmentTTL {
		return *w.env, nil
	}

	info := EnvironmentInfo{
		OS:         runtime.GOOS,
		Platform:   runtime.GOARCH,
		Shell:      os.Getenv("SHELL"),
		WorkingDir: w.root,
	}
	if _, err := os.Stat(filepath.Join(w.root, ".git")); err == nil {
		info.IsGitRepo = true
	}
	w.env = &info
	w.envAt = time.Now()
	return info, nil
}

func (w *LocalWorkspace) InvalidateEnvironmentCache() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.env = nil
}

func parseRipgrepLines(output string) []GrepMatch {
	var matches []GrepMatch
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, _ := strconv.Atoi(parts[1])
		matches = append(matches, GrepMatch{Path: parts[0], Line: lineNum, Content: parts[2]})
	}
	return matches
}

// MatchGlob exposes doublestar matching for callers outside this package
// (e.g. the tool-visibility map) without re-importing doublestar directly.
func MatchGlob(pattern, name string) bool {
	matched, _ := doublestar.Match(pattern, name)
	return matched
}
