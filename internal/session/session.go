// Package session implements the Session actor: the
// single-consumer task that owns one conversation's state — the message
// DAG, the tool-call registry, the approval gate, and the event journal —
// and serializes every mutation through an action mailbox so the Agent
// Executor (internal/executor) never has to reason about concurrent access.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/command"
	"github.com/steerrt/agentrt/internal/executor"
	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/logging"
	"github.com/steerrt/agentrt/internal/persist"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/internal/workspace/policy"
	"github.com/steerrt/agentrt/pkg/types"
)

// ActionKind discriminates one mailbox message.
type ActionKind string

const (
	ActionSendMessage          ActionKind = "send_message"
	ActionCancelCurrentTurn    ActionKind = "cancel_current_turn"
	ActionRespondToApproval    ActionKind = "respond_to_approval"
	ActionSetActiveMessage     ActionKind = "set_active_message"
	ActionEditMessage          ActionKind = "edit_message"
	ActionCompactConversation  ActionKind = "compact_conversation"
	ActionExecuteCommand       ActionKind = "execute_command"
	ActionMcpServerStateChange ActionKind = "mcp_server_state_changed"
)

// Action is one unit of work submitted to a Session's mailbox.
type Action struct {
	Kind ActionKind

	// SendMessage / EditMessage
	UserContent []types.UserContent
	MessageID   string

	// RespondToApproval
	RequestID string
	Decision  approval.Decision

	// ExecuteCommand
	CommandName string
	CommandArgs map[string]string

	// McpServerStateChanged
	ServerName  string
	ServerState string

	reply chan actionReply
}

type actionReply struct {
	extra any
	err   error
}

// Deps bundles every shared resource a Session needs, provided once at
// process start and reused across every session the manager resides.
type Deps struct {
	LLM      *llm.Registry
	Tools    *tool.Registry
	Agents   *agent.Registry
	Persist  *persist.DB
	DoomLoop *approval.DoomLoopDetector

	// GlobalConfig, when set, backs each Session's slash-command executor
	// (config-defined commands plus .agentrt/command/*.md files under the
	// session's workspace). Nil disables ActionExecuteCommand.
	GlobalConfig *types.GlobalConfig
}

// Session is one conversation's resident actor.
type Session struct {
	id     string
	config types.SessionConfig
	deps   Deps
	ws     workspace.Workspace

	journal   *Journal
	approvals *approval.Gate
	commands  *command.Executor

	mu              sync.Mutex
	messages        []types.Message
	toolCalls       map[string]*types.ToolCallState
	activeMessageID *string
	title           string
	createdAt       int64
	busy            bool
	turnCancel      context.CancelFunc
	turnDone        chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
	mailbox chan *Action
}

// New constructs a Session bound to id/config, starts its workspace, and
// launches the mailbox loop. Callers obtain Sessions through a Manager
// rather than calling this directly. history/title/createdAt seed a resumed
// session's in-memory state; pass nil/""/0 for a brand-new session.
func New(id string, config types.SessionConfig, deps Deps, grants []types.ApprovalGrant, history []types.Message, title string, createdAt int64) (*Session, error) {
	ws, err := buildWorkspace(id, config.Workspace)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "New Session"
	}
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	var cmdExec *command.Executor
	if deps.GlobalConfig != nil {
		cmdExec = command.NewExecutor(ws.WorkingDirectory(), deps.GlobalConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		config:    config,
		deps:      deps,
		ws:        ws,
		journal:   NewJournal(id),
		approvals: approval.New(grants),
		commands:  cmdExec,
		messages:  append([]types.Message(nil), history...),
		toolCalls: make(map[string]*types.ToolCallState),
		baseCtx:   ctx,
		cancel:    cancel,
		mailbox:   make(chan *Action),
		title:     title,
		createdAt: createdAt,
	}
	go s.loop()
	return s, nil
}

// Title returns the session's in-memory title.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// SetTitle updates the session's title; the next persistSession call
// (after any turn) writes it through to storage.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

func buildWorkspace(id string, cfg types.WorkspaceConfig) (workspace.Workspace, error) {
	switch cfg.Kind {
	case types.WorkspaceRemote:
		return nil, apperror.ConfigInvalid("workspace.kind", "remote workspace requires a prior grpc.Dial; use workspace.NewRemoteWorkspace directly and construct the Session's Deps around it")
	case types.WorkspaceContainer:
		return nil, apperror.ConfigInvalid("workspace.kind", "container workspaces are not yet implemented")
	default:
		if cfg.UseJJ {
			return workspace.NewJJWorkspace(id, cfg.Path), nil
		}
		return workspace.NewLocalWorkspace(id, cfg.Path, false), nil
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Busy reports whether a turn is currently running, consulted by the
// Manager before evicting an idle resident session.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Journal exposes the session's event log for subscription.
func (s *Session) Journal() *Journal { return s.journal }

// Workspace exposes the session's workspace, for RPC-layer operations
// (ListFiles) that read it without going through a turn.
func (s *Session) Workspace() workspace.Workspace { return s.ws }

// Close cancels any in-flight turn and stops the mailbox loop.
func (s *Session) Close() {
	s.cancel()
	close(s.mailbox)
}

// Dispatch submits action and waits for it to be accepted (not for a
// long-running turn to finish — SendMessage returns once the turn has
// started; its progress and completion arrive as journal events). A
// SendMessage rejected with Busy is retried automatically when
// config.SerialTurns is set, once the in-flight turn ends.
func (s *Session) Dispatch(ctx context.Context, action *Action) (any, error) {
	action.reply = make(chan actionReply, 1)
	for {
		select {
		case s.mailbox <- action:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		select {
		case rep := <-action.reply:
			if action.Kind == ActionSendMessage && apperror.Is(rep.err, apperror.KindSessionBusy) && s.config.SerialTurns {
				s.mu.Lock()
				wait := s.turnDone
				s.mu.Unlock()
				if wait != nil {
					select {
					case <-wait:
						continue
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				}
			}
			return rep.extra, rep.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (a *Action) respond(extra any, err error) {
	if a.reply != nil {
		a.reply <- actionReply{extra: extra, err: err}
	}
}

func (s *Session) loop() {
	for action := range s.mailbox {
		switch action.Kind {
		case ActionSendMessage:
			s.handleSendMessage(action)
		case ActionCancelCurrentTurn:
			s.mu.Lock()
			cancel := s.turnCancel
			s.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			action.respond(nil, nil)
		case ActionRespondToApproval:
			s.approvals.Respond(action.RequestID, action.Decision)
			action.respond(nil, nil)
		case ActionSetActiveMessage:
			s.setActiveMessage(action.MessageID)
			action.respond(nil, nil)
		case ActionEditMessage:
			err := s.editMessage(action.MessageID, action.UserContent)
			action.respond(nil, err)
		case ActionCompactConversation:
			go s.runCompaction(action)
		case ActionExecuteCommand:
			action.respond(s.resolveCommand(action), nil)
		case ActionMcpServerStateChange:
			s.emit(types.EventMcpServerStateChanged, types.McpServerStateChangedPayload{
				ServerName: action.ServerName, State: action.ServerState,
			})
			action.respond(nil, nil)
		default:
			action.respond(nil, fmt.Errorf("session: unknown action kind %q", action.Kind))
		}
	}
}

func (s *Session) emit(kind types.EventPayloadKind, payload any) {
	s.journal.Append(kind, payload)
}

func (s *Session) setActiveMessage(id string) {
	s.mu.Lock()
	if id == "" {
		s.activeMessageID = nil
	} else {
		s.activeMessageID = &id
	}
	s.mu.Unlock()
	var mp *string
	if id != "" {
		mp = &id
	}
	s.emit(types.EventActiveMessageIDChanged, types.ActiveMessageIDChangedPayload{MessageID: mp})
}

// handleSendMessage accepts or rejects the action synchronously, then runs
// the turn in the background so the mailbox loop stays responsive to
// cancellation and approval responses for the duration of the turn.
func (s *Session) handleSendMessage(action *Action) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		action.respond(nil, apperror.SessionBusy(s.id))
		return
	}
	s.busy = true
	turnCtx, cancel := context.WithCancel(s.baseCtx)
	s.turnCancel = cancel
	done := make(chan struct{})
	s.turnDone = done
	s.mu.Unlock()

	action.respond(nil, nil)

	go func() {
		defer func() {
			s.mu.Lock()
			s.busy = false
			s.turnCancel = nil
			s.mu.Unlock()
			close(done)
		}()
		s.runTurn(turnCtx, action.UserContent)
	}()
}

func (s *Session) runTurn(ctx context.Context, content []types.UserContent) {
	userMsg := types.Message{
		ID:          types.NewID(),
		SessionID:   s.id,
		Role:        types.RoleUser,
		UserContent: content,
		Timestamp:   time.Now().UnixMilli(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, userMsg)
	history := append([]types.Message(nil), s.messages...)
	s.mu.Unlock()
	s.persistMessage(userMsg)
	s.emit(types.EventMessageAdded, types.MessageAddedPayload{Message: &userMsg})

	maxContextTokens := s.config.MaxContextTokens
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	if shouldCompact(history, maxContextTokens) {
		if err := s.compact(); err != nil {
			logging.Logger.Warn().Str("session", s.id).Err(err).Msg("auto-compaction failed")
		} else {
			s.mu.Lock()
			history = append([]types.Message(nil), s.messages...)
			s.mu.Unlock()
		}
	}

	opID := types.NewID()
	s.emit(types.EventOperationStarted, types.OperationStartedPayload{OperationID: opID, Label: "turn"})

	agentRole, model, client, err := s.resolveAgentAndModel()
	if err != nil {
		s.emit(types.EventError, types.ErrorPayload{Kind: "session", Message: err.Error()})
		s.emit(types.EventOperationCompleted, types.OperationCompletedPayload{OperationID: opID, Outcome: types.OutcomeFailed, Error: err.Error()})
		return
	}

	catalog := s.filteredCatalog(agentRole)
	var assistantMu sync.Mutex
	var currentAssistantID string
	getCurrentAssistantID := func() string {
		assistantMu.Lock()
		defer assistantMu.Unlock()
		return currentAssistantID
	}

	eng := executor.New(executor.Config{
		Client: client,
		Model:  model,
		Agent:  agentRole,
		Tools:  catalog,
		System: executor.SystemPrompt{Agent: agentRole, Model: model, ProviderID: model.ProviderID, WorkDir: s.ws.WorkingDirectory()}.Build(),
		Emit: func(kind types.EventPayloadKind, payload any) {
			if p, ok := payload.(types.MessageAddedPayload); ok && p.Message != nil && p.Message.Role == types.RoleAssistant {
				assistantMu.Lock()
				currentAssistantID = p.Message.ID
				assistantMu.Unlock()
			}
			if kind == types.EventToolStarted {
				if p, ok := payload.(types.ToolStartedPayload); ok {
					idx := len(history)
					s.mu.Lock()
					s.toolCalls[p.ToolCallID] = &types.ToolCallState{
						Call:         types.ToolCall{ID: p.ToolCallID, Name: p.Name},
						Status:       types.ToolCallActive,
						StartedAt:    ptrInt64(time.Now().UnixMilli()),
						MessageIndex: &idx,
					}
					s.mu.Unlock()
				}
			}
			if kind == types.EventToolCompleted || kind == types.EventToolFailed {
				s.mu.Lock()
				var callID string
				var status types.ToolCallStatus
				var result *types.ToolResult
				switch kind {
				case types.EventToolCompleted:
					p := payload.(types.ToolCompletedPayload)
					callID, status, result = p.ToolCallID, types.ToolCallCompleted, &p.Result
				case types.EventToolFailed:
					p := payload.(types.ToolFailedPayload)
					r := types.Error(p.Error)
					callID, status, result = p.ToolCallID, types.ToolCallFailed, &r
				}
				if state, ok := s.toolCalls[callID]; ok {
					state.Status = status
					state.CompletedAt = ptrInt64(time.Now().UnixMilli())
					state.Result = result
				}
				s.mu.Unlock()
			}
			s.emit(kind, payload)
		},
		Approval: s.approvalFunc(agentRole),
		AlreadyGranted: func(call types.ToolCall) bool {
			return s.approvals.IsGranted(call)
		},
		DoomLoop: func(name string, params json.RawMessage) bool {
			if s.deps.DoomLoop == nil || !agentRole.IsPrimary() {
				return false
			}
			return s.deps.DoomLoop.Check(s.id, name, params)
		},
		Execution: executor.DefaultExecutionFunc(s.deps.Tools, s.ws, s.id, getCurrentAssistantID, agentRole.Name, ctx.Done()),
	})

	produced, err := eng.Run(ctx, history)

	s.mu.Lock()
	s.messages = append(s.messages, produced...)
	s.mu.Unlock()
	for _, m := range produced {
		s.persistMessage(m)
	}
	if len(produced) > 0 {
		last := produced[len(produced)-1].ID
		s.setActiveMessage(last)
	}

	if err != nil {
		logging.Logger.Warn().Str("session", s.id).Err(err).Msg("turn ended with error")
	}
	s.persistSession()
}

// approvalFunc builds the executor's ApprovalFunc: the agent role's static
// policy resolves first (allow/deny short-circuit), and only an "ask"
// disposition reaches the session's approval gate / human.
func (s *Session) approvalFunc(agentRole *agent.Agent) executor.ApprovalFunc {
	return func(ctx context.Context, call types.ToolCall) (approval.Decision, error) {
		if cat, ok := policyCategory(call.Name); ok {
			action := agentRole.GetPermission(cat)
			if cat == policy.CategoryBash {
				action = agentRole.CheckBashPermission(bashCommand(call.ParametersRaw))
			}
			switch action {
			case policy.ActionAllow:
				return approval.Approved, nil
			case policy.ActionDeny:
				return approval.Denied, nil
			}
		}

		requestID := types.NewID()
		s.emit(types.EventApprovalRequested, types.ApprovalRequestedPayload{RequestID: requestID, ToolCall: call})
		return s.approvals.Request(ctx, requestID, call)
	}
}

func policyCategory(toolName string) (policy.Category, bool) {
	switch toolName {
	case "bash":
		return policy.CategoryBash, true
	case "edit_file", "multi_edit_file", "write_file", "replace":
		return policy.CategoryEdit, true
	case "webfetch":
		return policy.CategoryWebFetch, true
	default:
		return "", false
	}
}

func bashCommand(raw json.RawMessage) string {
	var v struct {
		Command string `json:"command"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.Command
}

func (s *Session) resolveAgentAndModel() (*agent.Agent, *types.Model, llm.Client, error) {
	agentName := s.config.PrimaryAgent
	if agentName == "" {
		agentName = "build"
	}
	agentRole, err := s.deps.Agents.Get(agentName)
	if err != nil {
		return nil, nil, nil, err
	}

	modelRef := s.config.DefaultModel
	if agentRole.Model != nil {
		modelRef = *agentRole.Model
	}
	var model *types.Model
	if modelRef.ModelID != "" {
		model, err = s.deps.LLM.GetModel(modelRef.ProviderID, modelRef.ModelID)
	} else {
		model, err = s.deps.LLM.DefaultModel()
	}
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := s.deps.LLM.Get(model.ProviderID)
	if err != nil {
		return nil, nil, nil, err
	}
	return agentRole, model, client, nil
}

// filteredCatalog narrows the tool registry's catalog by the session's
// visibility mode, the agent role's tool map, and the session's approval
// policy.
func (s *Session) filteredCatalog(agentRole *agent.Agent) []tool.CatalogEntry {
	var out []tool.CatalogEntry
	for _, entry := range s.deps.Tools.Catalog() {
		if !visibilityAllows(s.config.ToolConfig.Visibility, entry.Name) {
			continue
		}
		if !agentRole.ToolEnabled(entry.Name) {
			continue
		}
		if s.config.ToolConfig.ApprovalPolicy == types.ApprovalAlwaysAsk {
			entry.RequiresApproval = true
		}
		out = append(out, entry)
	}
	return out
}

func visibilityAllows(v types.ToolVisibility, toolName string) bool {
	switch v.Mode {
	case types.VisibilityWhitelist:
		return contains(v.Tools, toolName)
	case types.VisibilityBlacklist:
		return !contains(v.Tools, toolName)
	case types.VisibilityReadOnly:
		return readOnlyTools[toolName]
	default:
		return true
	}
}

var readOnlyTools = map[string]bool{
	"view": true, "ls": true, "glob": true, "grep": true, "ast_grep": true,
	"todo_read": true, "webfetch": true, "batch": true,
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Session) editMessage(messageID string, content []types.UserContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].UserContent = content
			return nil
		}
	}
	return apperror.ProtocolMalformed(fmt.Sprintf("message %s not found", messageID))
}

// resolveCommand expands a slash command through the session's command
// executor and, on success, feeds the resulting prompt into the turn
// pipeline exactly as a SendMessage action would. It runs on the mailbox
// goroutine, so calling handleSendMessage directly (rather than going back
// through the mailbox channel) is safe.
func (s *Session) resolveCommand(action *Action) any {
	if s.commands == nil {
		return map[string]any{"error": fmt.Sprintf("command %q: no commands configured for this session", action.CommandName)}
	}
	result, err := s.commands.ExecuteWithArgs(context.Background(), action.CommandName, action.CommandArgs)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	s.handleSendMessage(&Action{Kind: ActionSendMessage, UserContent: []types.UserContent{types.NewUserText(result.Prompt)}})
	return result
}

func (s *Session) persistMessage(msg types.Message) {
	if s.deps.Persist == nil {
		return
	}
	if err := s.deps.Persist.PutMessage(context.Background(), msg); err != nil {
		logging.Logger.Warn().Str("session", s.id).Err(err).Msg("failed to persist message")
	}
}

// PersistHeader writes the session's current header to storage immediately,
// used by the Manager right after creating a session so it shows up in
// ListSessions before any turn has run.
func (s *Session) PersistHeader() { s.persistSession() }

func (s *Session) persistSession() {
	if s.deps.Persist == nil {
		return
	}
	s.mu.Lock()
	header := types.SessionHeader{ID: s.id, Title: s.title, CreatedAt: s.createdAt, UpdatedAt: time.Now().UnixMilli()}
	s.mu.Unlock()
	if err := s.deps.Persist.PutSession(context.Background(), header); err != nil {
		logging.Logger.Warn().Str("session", s.id).Err(err).Msg("failed to persist session header")
	}
}

func ptrInt64(v int64) *int64 { return &v }
