package vcs

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/steerrt/agentrt/internal/event"
)

// jjPollInterval is how often JJWatcher re-reads the working-copy change ID.
// jj has no single mutable HEAD file to fsnotify the way git does — a
// workspace's current change lives in its operation log, which is rewritten
// by every jj command rather than touched in place — so polling the CLI is
// the only portable signal.
const jjPollInterval = 2 * time.Second

// JJWatcher polls `jj log` for working-copy bookmark changes, the jj
// counterpart to Watcher's fsnotify-driven git HEAD watch.
type JJWatcher struct {
	workDir string
	current string
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.RWMutex
}

// NewJJWatcher creates a watcher for the given jj workspace root. Returns
// nil if workDir is not a jj workspace.
func NewJJWatcher(workDir string) (*JJWatcher, error) {
	if !isJJWorkspace(workDir) {
		log.Debug().Str("workDir", workDir).Msg("not a jj workspace, VCS watcher disabled")
		return nil, nil
	}

	bookmark := currentJJBookmark(workDir)
	log.Info().Str("bookmark", bookmark).Msg("jj VCS watcher initialized")

	return &JJWatcher{
		workDir: workDir,
		current: bookmark,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins polling for bookmark changes.
func (w *JJWatcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *JJWatcher) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(jjPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkBookmarkChange()
		}
	}
}

func (w *JJWatcher) checkBookmarkChange() {
	newBookmark := currentJJBookmark(w.workDir)

	w.mu.Lock()
	old := w.current
	changed := newBookmark != old
	if changed {
		w.current = newBookmark
	}
	w.mu.Unlock()

	if changed {
		log.Info().Str("from", old).Str("to", newBookmark).Msg("jj bookmark changed")
		event.PublishSync(event.Event{
			Type: event.VcsBranchUpdated,
			Data: map[string]any{"branch": newBookmark},
		})
	}
}

// CurrentBranch returns the currently tracked bookmark/change.
func (w *JJWatcher) CurrentBranch() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop stops the watcher.
func (w *JJWatcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}
	return nil
}

func isJJWorkspace(workDir string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "jj", "root")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// currentJJBookmark reports the working copy's change id plus any attached
// bookmark name, e.g. "kzsllnty main". An empty string means jj could not
// be queried (binary missing, workDir not inside a workspace, etc).
func currentJJBookmark(workDir string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "jj", "log", "--no-graph", "-r", "@", "-T",
		`change_id.short() ++ " " ++ bookmarks`)
	cmd.Dir = workDir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
