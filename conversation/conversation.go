// Package conversation holds the in-memory, append-only conversation state
// owned exclusively by the agent loop's host: messages, per-session
// metadata, and cumulative token accounting. Nothing in this package
// touches disk — conversation state is never persisted across process
// restarts.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request, issued by the model, to invoke a named
// tool with typed arguments.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult is the structured outcome of executing a ToolCall, ready to be
// re-injected as a tool-role Message.
type ToolResult struct {
	Success    bool        `json:"success"`
	Payload    interface{} `json:"payload,omitempty"`
	ErrorKind  string      `json:"error_kind,omitempty"`
	ErrorMsg   string      `json:"error_message,omitempty"`
	Truncated  bool        `json:"_truncated,omitempty"`
}

// Message is one entry in the conversation log.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// TokenUsage accumulates prompt/completion/total token counts across a
// session, supplementing the distilled spec's per-turn usage reporting with
// cumulative accounting (SPEC_FULL.md §2.3).
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add folds usage from a single turn into the running total.
func (u *TokenUsage) Add(prompt, completion, total int) {
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.TotalTokens += total
}

// Conversation is the pure in-memory append-only message log plus its
// metadata block.
type Conversation struct {
	ID        string
	ModelID   string
	StartedAt time.Time
	Messages  []Message
	Usage     TokenUsage
}

// New starts a fresh, empty conversation with a freshly generated id.
func New(modelID string) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		ModelID:   modelID,
		StartedAt: time.Now(),
		Messages:  []Message{},
	}
}

// Append adds msg to the end of the canonical log.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// Len reports the number of messages currently in the canonical log.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// Reset wipes the message log and usage counters in place, keeping the
// conversation's identity and model id. Callers are responsible for also
// resetting the ConfirmationManager and MemoryManager, per SPEC_FULL.md
// §4.8.
func (c *Conversation) Reset() {
	c.Messages = []Message{}
	c.Usage = TokenUsage{}
	c.StartedAt = time.Now()
}

// HasToolCall reports whether any assistant message in the conversation
// carries a tool call with the given id, i.e. whether a tool message with
// that id would reference a real preceding call.
func (c *Conversation) HasToolCall(id string) bool {
	for _, m := range c.Messages {
		if m.Role != RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			if tc.ID == id {
				return true
			}
		}
	}
	return false
}
