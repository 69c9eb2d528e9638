package headless

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/config"
	"github.com/steerrt/agentrt/internal/credential"
	"github.com/steerrt/agentrt/internal/executor"
	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/persist"
	"github.com/steerrt/agentrt/internal/session"
	"github.com/steerrt/agentrt/internal/storage"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/pkg/types"
)

// Runner drives one prompt through the session runtime outside of any RPC
// server: load config, stand up the shared Deps a Manager needs, create or
// resume a single session, dispatch the prompt, and drain its event stream
// until the turn completes.
type Runner struct {
	config    *Config
	appConfig *types.GlobalConfig
	printer   *Printer

	persistDB *persist.DB
	manager   *session.Manager

	sessionConfig types.SessionConfig
	modelLabel    string
}

// NewRunner creates a new headless runner.
func NewRunner(cfg *Config) *Runner {
	return &Runner{config: cfg}
}

// Run executes the headless session and returns the final result.
func (r *Runner) Run(ctx context.Context, writer io.Writer) (*Result, error) {
	r.printer = NewPrinter(writer, r.config.OutputFormat, r.config.Quiet, r.config.Verbose)

	if err := r.initialize(ctx); err != nil {
		r.printer.SetResult("error", ExitError, "", err)
		return r.printer.GetResult(), err
	}
	if r.persistDB != nil {
		defer r.persistDB.Close()
	}

	prompt, err := r.getPrompt()
	if err != nil {
		r.printer.SetResult("error", ExitInvalidInput, "", err)
		return r.printer.GetResult(), err
	}
	if prompt == "" {
		err := errors.New("prompt is required")
		r.printer.SetResult("error", ExitInvalidInput, "", err)
		return r.printer.GetResult(), err
	}

	sess, err := r.getOrCreateSession(ctx)
	if err != nil {
		r.printer.SetResult("error", ExitSessionNotFound, "", err)
		return r.printer.GetResult(), err
	}
	r.printer.SetSessionID(sess.ID())
	r.printer.SetModel(r.modelLabel)

	runCtx := ctx
	var cancel context.CancelFunc
	if r.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	_, events, unsubscribe, err := r.manager.SubscribeEvents(runCtx, sess.ID(), r.sessionConfig, 0)
	if err != nil {
		r.printer.SetResult("error", ExitError, "", err)
		return r.printer.GetResult(), err
	}
	defer unsubscribe()

	action := &session.Action{
		Kind:        session.ActionSendMessage,
		UserContent: []types.UserContent{types.NewUserText(prompt)},
	}
	if _, err := r.manager.DispatchAction(runCtx, sess.ID(), r.sessionConfig, action); err != nil {
		r.printer.SetResult("error", ExitError, "", err)
		return r.printer.GetResult(), err
	}

	status, exitCode, err := r.drainEvents(runCtx, sess.ID(), events)
	r.printer.SetResult(status, exitCode, "", err)
	r.printer.PrintFinalResult()
	return r.printer.GetResult(), err
}

// drainEvents feeds every event to the printer, auto-resolving approval
// requests as they arrive, until the turn's EventOperationCompleted lands or
// the context is cancelled.
func (r *Runner) drainEvents(ctx context.Context, sessionID string, events <-chan types.SessionEvent) (status string, exitCode ExitCode, err error) {
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "timeout", ExitTimeout, ctx.Err()
			}
			return "error", ExitError, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return "error", ExitError, errors.New("event stream closed before the turn completed")
			}
			r.printer.HandleEvent(ev)

			if ev.Kind == types.EventApprovalRequested {
				if denied := r.respondToApproval(ctx, sessionID, ev); denied {
					return "permission_denied", ExitPermissionDenied, errors.New("tool call was denied")
				}
				continue
			}

			if ev.Kind == types.EventOperationCompleted {
				payload, ok := ev.Payload.(types.OperationCompletedPayload)
				if !ok {
					return "error", ExitError, errors.New("malformed operation-completed event")
				}
				switch payload.Outcome {
				case types.OutcomeSuccess:
					return "success", ExitSuccess, nil
				case types.OutcomeCancelled:
					return "cancelled", ExitError, errors.New("turn was cancelled")
				default:
					return "error", ExitError, errors.New(payload.Error)
				}
			}
		}
	}
}

// respondToApproval auto-approves a requested tool call when AutoApprove is
// set, otherwise denies it and reports the denial. Returns true when the
// call was denied.
func (r *Runner) respondToApproval(ctx context.Context, sessionID string, ev types.SessionEvent) bool {
	payload, ok := ev.Payload.(types.ApprovalRequestedPayload)
	if !ok {
		return false
	}
	decision := approval.Denied
	if r.config.AutoApprove {
		decision = approval.Approved
	}
	action := &session.Action{
		Kind:      session.ActionRespondToApproval,
		RequestID: payload.RequestID,
		Decision:  decision,
	}
	if _, err := r.manager.DispatchAction(ctx, sessionID, r.sessionConfig, action); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to resolve approval %s: %v\n", payload.RequestID, err)
	}
	return decision == approval.Denied
}

// initialize loads configuration and assembles the shared Deps, the
// session's workspace, and this run's SessionConfig.
func (r *Runner) initialize(ctx context.Context) error {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("ensure paths: %w", err)
	}

	appConfig, err := config.Load(r.config.WorkDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r.appConfig = appConfig

	if r.config.Model != "" {
		appConfig.Model = r.config.Model
	}
	if appConfig.Model == "" {
		appConfig.Model = "anthropic/claude-sonnet-4-20250514"
	}
	r.modelLabel = appConfig.Model

	dbPath := paths.SessionDBPath()
	storagePath := paths.StoragePath()
	if r.config.NoSave {
		tempDir, err := os.MkdirTemp("", "agentrt-headless-*")
		if err != nil {
			return fmt.Errorf("create ephemeral storage dir: %w", err)
		}
		dbPath = ":memory:"
		storagePath = tempDir
	}

	persistDB, err := persist.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	r.persistDB = persistDB

	store := storage.New(storagePath)

	credStore, err := credential.NewStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	resolver := credential.Resolver{Store: credStore, Static: configCredentialResolver{appConfig}}
	llmRegistry := llm.InitializeClients(providerSettings(appConfig.Provider), resolver, appConfig.Model)

	agentRegistry := agent.NewRegistry()
	if appConfig.Agent != nil {
		agentRegistry.LoadFromConfig(appConfig.Agent)
	}

	ws := workspace.NewLocalWorkspace("headless", r.config.WorkDir, false)
	toolRegistry := tool.DefaultRegistry(ws, store)
	toolRegistry.RegisterTaskTool(agentRegistry)

	providerID, modelID := llm.ParseModelString(appConfig.Model)
	toolRegistry.SetTaskExecutor(executor.NewSubagentDispatcher(llmRegistry, agentRegistry, toolRegistry, ws, types.ModelRef{ProviderID: providerID, ModelID: modelID}))

	deps := session.Deps{
		LLM:          llmRegistry,
		Tools:        toolRegistry,
		Agents:       agentRegistry,
		Persist:      persistDB,
		DoomLoop:     approval.NewDoomLoopDetector(),
		GlobalConfig: appConfig,
	}
	r.manager = session.NewManager(deps, persistDB, 1)

	primaryAgent := r.config.Agent
	if primaryAgent == "" {
		primaryAgent = "build"
	}

	r.sessionConfig = types.SessionConfig{
		Workspace: types.WorkspaceConfig{
			Kind: types.WorkspaceLocal,
			Path: r.config.WorkDir,
		},
		DefaultModel: types.ModelRef{ProviderID: providerID, ModelID: modelID},
		ToolConfig: types.ToolConfig{
			Visibility:     types.ToolVisibility{Mode: types.VisibilityAll},
			ApprovalPolicy: types.ApprovalTagged,
		},
		PrimaryAgent: primaryAgent,
		SystemPrompt: r.config.SystemPrompt,
		SerialTurns:  true,
	}

	return nil
}

// providerSettings adapts a GlobalConfig's provider map to the shape
// llm.InitializeClients expects.
func providerSettings(providers map[string]types.ProviderConfig) map[string]llm.ProviderSettings {
	settings := make(map[string]llm.ProviderSettings, len(providers))
	for name, cfg := range providers {
		settings[name] = llm.ProviderSettings{Disable: cfg.Disable}
	}
	return settings
}

// configCredentialResolver resolves provider credentials from the loaded
// GlobalConfig's provider map. It is credential.Resolver's Static source,
// consulted before the keyring.
type configCredentialResolver struct {
	config *types.GlobalConfig
}

func (c configCredentialResolver) Resolve(providerID string) (apiKey, baseURL string, err error) {
	p, ok := c.config.Provider[providerID]
	if !ok {
		return "", "", nil
	}
	return p.APIKey, p.BaseURL, nil
}

// getPrompt assembles the prompt text from the CLI flag, stdin, and any
// attached files.
func (r *Runner) getPrompt() (string, error) {
	var prompt string

	if r.config.ReadStdin {
		scanner := bufio.NewScanner(os.Stdin)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil && err != io.EOF {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		prompt = strings.Join(lines, "\n")
	}

	if r.config.Prompt != "" {
		if prompt != "" {
			prompt = r.config.Prompt + "\n\n" + prompt
		} else {
			prompt = r.config.Prompt
		}
	}

	if len(r.config.Files) > 0 {
		var fileContent strings.Builder
		for _, file := range r.config.Files {
			content, err := os.ReadFile(file)
			if err != nil {
				return "", fmt.Errorf("read file %s: %w", file, err)
			}
			fmt.Fprintf(&fileContent, "\n\n--- File: %s ---\n%s", file, string(content))
		}
		prompt += fileContent.String()
	}

	return strings.TrimSpace(prompt), nil
}

// getOrCreateSession resolves --session/--continue into a resumed Session,
// or creates a fresh one.
func (r *Runner) getOrCreateSession(ctx context.Context) (*session.Session, error) {
	if r.config.SessionID != "" {
		return r.manager.ResumeSession(ctx, r.config.SessionID, r.sessionConfig)
	}

	if r.config.ContinueLast {
		headers, err := r.manager.ListSessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if len(headers) > 0 {
			sort.Slice(headers, func(i, j int) bool { return headers[i].UpdatedAt > headers[j].UpdatedAt })
			return r.manager.ResumeSession(ctx, headers[0].ID, r.sessionConfig)
		}
	}

	title := r.config.Title
	if title == "" {
		title = "Headless Session"
	}
	return r.manager.CreateSession(ctx, r.sessionConfig, title, nil)
}
