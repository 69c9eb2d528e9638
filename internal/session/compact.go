package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/logging"
	"github.com/steerrt/agentrt/pkg/types"
)

// CompactionConfig controls when and how much of the conversation a
// CompactConversation action summarizes away.
type CompactionConfig struct {
	MinMessagesToKeep int
	SummaryMaxTokens  int
}

// DefaultCompactionConfig keeps the last few messages verbatim and caps
// the summary itself to a few thousand tokens.
var DefaultCompactionConfig = CompactionConfig{MinMessagesToKeep: 4, SummaryMaxTokens: 2000}

// defaultMaxContextTokens is the threshold that triggers
// auto-compaction once accumulated token usage crosses this, absent a
// session-level override.
const defaultMaxContextTokens = 150000

const compactionSystemPrompt = `You are a conversation summarizer. Produce a concise summary of the conversation that preserves the context needed to continue it: what was accomplished, current work in progress, files touched, next steps, and any constraints the user stated. Be concise but complete enough that work can continue seamlessly.`

// runCompaction summarizes the conversation's oldest messages into a single
// assistant message and drops them from the live history, freeing context.
// Always runs in its own goroutine off the mailbox loop, since it makes a
// model call.
func (s *Session) runCompaction(action *Action) {
	action.respond(nil, s.compact())
}

// compact summarizes every message but the most recent
// DefaultCompactionConfig.MinMessagesToKeep into one assistant message, used
// both by the explicit CompactConversation action and by the automatic
// pre-turn check in runTurn.
func (s *Session) compact() error {
	s.mu.Lock()
	messages := append([]types.Message(nil), s.messages...)
	s.mu.Unlock()

	if len(messages) <= DefaultCompactionConfig.MinMessagesToKeep {
		return nil
	}

	model, err := s.deps.LLM.DefaultModel()
	if err != nil {
		return err
	}
	client, err := s.deps.LLM.Get(model.ProviderID)
	if err != nil {
		return err
	}

	cutoff := len(messages) - DefaultCompactionConfig.MinMessagesToKeep
	toCompact := messages[:cutoff]
	prompt := summarize(toCompact)

	var summary strings.Builder
	_, err = client.Complete(s.baseCtx, llm.CompletionRequest{
		Model:     model,
		System:    compactionSystemPrompt,
		Messages:  []types.Message{{Role: types.RoleUser, UserContent: []types.UserContent{types.NewUserText(prompt)}}},
		MaxTokens: DefaultCompactionConfig.SummaryMaxTokens,
	}, func(ev llm.StreamEvent) {
		if ev.Kind == llm.TextDelta {
			summary.WriteString(ev.Text)
			s.emit(types.EventMessageDelta, types.MessageDeltaPayload{Delta: ev.Text})
		}
	})
	if err != nil {
		return err
	}

	summaryMsg := types.Message{
		ID:        types.NewID(),
		SessionID: s.id,
		Role:      types.RoleAssistant,
		Timestamp: time.Now().UnixMilli(),
		AssistantContent: []types.AssistantContent{
			{Kind: types.AssistantContentText, Text: summary.String()},
		},
		ProviderID: model.ProviderID,
		ModelID:    model.ID,
	}

	s.mu.Lock()
	s.messages = append([]types.Message{summaryMsg}, messages[cutoff:]...)
	s.mu.Unlock()
	s.persistMessage(summaryMsg)
	s.emit(types.EventMessageAdded, types.MessageAddedPayload{Message: &summaryMsg, Model: model.ID})

	logging.Logger.Info().Str("session", s.id).Int("dropped", cutoff).Msg("compacted conversation")
	return nil
}

func summarize(messages []types.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the conversation below, focusing on decisions made, files touched, and next steps.\n\n---\n\n")
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleUser:
			b.WriteString("USER:\n")
			for _, c := range msg.UserContent {
				if c.Kind == types.UserContentText {
					b.WriteString(c.Text)
					b.WriteString("\n")
				}
			}
		case types.RoleAssistant:
			b.WriteString("ASSISTANT:\n")
			for _, c := range msg.AssistantContent {
				if c.Kind == types.AssistantContentText {
					b.WriteString(c.Text)
					b.WriteString("\n")
				}
				if c.Kind == types.AssistantContentToolCall && c.ToolCall != nil {
					fmt.Fprintf(&b, "[called %s]\n", c.ToolCall.Name)
				}
			}
		case types.RoleTool:
			if msg.Result != nil {
				out := msg.Result.Payload
				if len(out) > 500 {
					out = out[:500] + "..."
				}
				fmt.Fprintf(&b, "[tool result] %s\n", out)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// shouldCompact reports whether the conversation's accumulated token usage
// has crossed maxContextTokens, the trigger an auto-compaction check uses
// before each turn.
func shouldCompact(messages []types.Message, maxContextTokens int) bool {
	var total int
	for _, msg := range messages {
		if msg.Tokens != nil {
			total += msg.Tokens.Input + msg.Tokens.Output
		}
	}
	return total > maxContextTokens
}
