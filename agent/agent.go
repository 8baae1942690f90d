// Package agent implements the agentic loop: it drives a Backend and a
// tools.Registry through repeated chat/tool-call/result cycles, consulting
// a confirmation.Manager before any sensitive tool runs and a memory.Manager
// to keep each outgoing request inside the backend's context budget.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agentichat/agentichat/confirmation"
	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/llm"
	"github.com/agentichat/agentichat/memory"
	"github.com/agentichat/agentichat/metadata"
	"github.com/agentichat/agentichat/tools"
)

// ToolVerbosity controls how much detail a host surface shows about tool
// activity; the loop itself doesn't branch on it — it's carried for
// callbacks to consult.
type ToolVerbosity int

const (
	ToolVerbosityNone ToolVerbosity = iota
	ToolVerbosityInfo
	ToolVerbosityAll
)

const defaultMaxIterations = 10
const defaultResultCap = 8000

// ProcessCallbacks lets a host surface (such as the terminal)
// observe loop events without the loop knowing anything about how they're
// displayed — generalized from the teacher's agent/doc.go vocabulary
// (OnAssistantMessage/OnToolCall/OnToolResult/OnWarning) into working code.
type ProcessCallbacks struct {
	OnAssistantMessage func(content string)
	OnToolCall         func(tc conversation.ToolCall)
	OnToolResult       func(tc conversation.ToolCall, result *tools.Result)
	OnRetry            func(info llm.RetryInfo)
	OnWarning          func(message string)
}

// Loop drives one conversation through the backend/tools/confirmation
// cycle described in SPEC_FULL.md §4.5.
type Loop struct {
	backend       llm.Backend
	registry      *tools.Registry
	confirm       *confirmation.Manager
	mem           *memory.Manager
	meta          *metadata.Store
	conv          *conversation.Conversation
	maxIterations int
	resultCap     int
	maxParallel   *int // nil = unconstrained; resolved against meta at call time
	systemPrompt  string
}

// Option configures optional Loop behavior at construction.
type Option func(*Loop)

// WithMaxIterations overrides the default iteration ceiling (10).
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithResultCap overrides the default per-tool-result character cap (8000).
func WithResultCap(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.resultCap = n
		}
	}
}

// WithMaxParallelTools pins the model's max-parallel-tools constraint
// (e.g. from BackendConfig.MaxParallelTools) instead of deferring to the
// metadata store.
func WithMaxParallelTools(n int) Option {
	return func(l *Loop) {
		l.maxParallel = &n
	}
}

// WithMetadataStore wires a model-constraint cache consulted when no
// explicit max-parallel-tools was configured, and updated when a backend
// error reveals the constraint at runtime.
func WithMetadataStore(s *metadata.Store) Option {
	return func(l *Loop) {
		l.meta = s
	}
}

// New constructs a Loop. The system prompt is built once here, from the
// registry's current schemas, and is prepended to the conversation on the
// first call to ProcessUserInput if not already present.
func New(backend llm.Backend, registry *tools.Registry, confirm *confirmation.Manager, mem *memory.Manager, conv *conversation.Conversation, opts ...Option) *Loop {
	l := &Loop{
		backend:       backend,
		registry:      registry,
		confirm:       confirm,
		mem:           mem,
		conv:          conv,
		maxIterations: defaultMaxIterations,
		resultCap:     defaultResultCap,
		systemPrompt:  buildSystemPrompt(registry.Schemas()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reset wipes the conversation and returns the confirmation manager to ASK
// mode, per SPEC_FULL.md §4.8's host-driven reset contract. The memory
// manager carries no per-conversation counters to reset.
func (l *Loop) Reset() {
	l.conv.Reset()
	l.confirm.Reset()
}

// ProcessUserInput appends userInput as a user message and runs the loop
// until a final assistant reply is produced or the iteration ceiling is
// hit (in which case it returns a KindMaxIterations error and leaves the
// canonical conversation untouched beyond what was already appended).
func (l *Loop) ProcessUserInput(ctx context.Context, userInput string, callbacks ProcessCallbacks) (string, error) {
	if l.systemPrompt != "" && (l.conv.Len() == 0 || l.conv.Messages[0].Role != conversation.RoleSystem) {
		l.conv.Messages = append([]conversation.Message{{Role: conversation.RoleSystem, Content: l.systemPrompt}}, l.conv.Messages...)
	}
	l.conv.Append(conversation.Message{Role: conversation.RoleUser, Content: userInput})

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		outgoing := l.conv.Messages
		if l.mem != nil {
			outgoing = l.mem.Trim(outgoing)
		}

		resp, err := l.backend.Chat(ctx, outgoing, l.registry.Schemas(), false, callbacks.OnRetry)
		if err != nil {
			if l.meta != nil {
				l.meta.DetectAndSave(l.conv.ModelID, err.Error())
			}
			return "", err
		}
		l.conv.Usage.Add(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)

		if resp.FinishReason == llm.FinishLength && len(resp.ToolCalls) == 0 {
			l.conv.Append(conversation.Message{Role: conversation.RoleAssistant, Content: resp.Content})
			l.conv.Append(conversation.Message{
				Role:    conversation.RoleUser,
				Content: "[System] Your response was truncated; please produce a more concise answer.",
			})
			continue
		}

		l.conv.Append(conversation.Message{Role: conversation.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})

		if len(resp.ToolCalls) == 0 {
			if callbacks.OnAssistantMessage != nil {
				callbacks.OnAssistantMessage(resp.Content)
			}
			l.checkMemoryWarning(ctx, callbacks)
			return resp.Content, nil
		}

		if err := l.runToolCalls(ctx, resp.ToolCalls, callbacks); err != nil {
			return "", err
		}
	}

	return "", errors.New(errors.KindMaxIterations, fmt.Sprintf("reached the %d-iteration limit without a final reply", l.maxIterations))
}

// checkMemoryWarning runs the Memory Manager's warning/auto-compression
// policy against the current message count (SPEC_FULL.md §4.7), surfacing a
// warning through callbacks.OnWarning and, if the count has crossed the
// auto-compression trigger, running the compression itself.
func (l *Loop) checkMemoryWarning(ctx context.Context, callbacks ProcessCallbacks) {
	if l.mem == nil {
		return
	}
	lvl := l.mem.CheckWarning(l.conv.Len())
	if lvl.ShouldWarn && callbacks.OnWarning != nil {
		if lvl.OveragePercent > 0 {
			callbacks.OnWarning(fmt.Sprintf("conversation is %d%% over the compression threshold (%d messages)", lvl.OveragePercent, lvl.MessageCount))
		} else {
			callbacks.OnWarning(fmt.Sprintf("conversation is approaching the compression threshold (%d/%d messages)", lvl.MessageCount, lvl.Threshold))
		}
	}
	if lvl.ShouldCompress {
		if _, err := l.Compress(ctx, l.mem.AutoKeepMessages()); err != nil {
			if callbacks.OnWarning != nil {
				callbacks.OnWarning(fmt.Sprintf("auto-compression failed: %v", err))
			}
			return
		}
		if callbacks.OnWarning != nil {
			callbacks.OnWarning("conversation history was automatically compressed")
		}
	}
}

// Compress runs a manual or automatic compression pass over the canonical
// conversation, replacing everything but the last keep messages with a
// single summary generated by the backend itself. It returns the generated
// summary text.
func (l *Loop) Compress(ctx context.Context, keep int) (string, error) {
	if l.mem == nil {
		return "", errors.New(errors.KindCommandFailed, "no memory manager configured")
	}
	out, err := memory.Compress(ctx, l.conv.Messages, memory.CompressOptions{Keep: keep}, l.summarize)
	if err != nil {
		return "", err
	}
	l.conv.Messages = out
	if len(out) == 0 {
		return "", nil
	}
	return out[0].Content, nil
}

// summarize asks the backend itself to produce a summary, with no tool
// schemas and no retry observability — compression is a background
// housekeeping call, not a turn the host needs to watch retries on.
func (l *Loop) summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := l.backend.Chat(ctx, []conversation.Message{{Role: conversation.RoleUser, Content: prompt}}, nil, false, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// runToolCalls executes calls in order, appending a tool message per call
// to the canonical conversation. Calls run concurrently only when the
// resolved max-parallel-tools constraint allows more than one AND none of
// the calls in this batch require confirmation; otherwise they run strictly
// sequentially (SPEC_FULL.md §4.5). Concurrency is capped at the constraint
// when one is set (> 1); with no constraint (0) every call in the batch
// starts at once.
func (l *Loop) runToolCalls(ctx context.Context, calls []conversation.ToolCall, callbacks ProcessCallbacks) error {
	limit := l.resolveMaxParallel()
	anyNeedsConfirmation := false
	for _, tc := range calls {
		if l.registry.RequiresConfirmation(tc.Name) {
			anyNeedsConfirmation = true
			break
		}
	}

	if limit == 1 || anyNeedsConfirmation || len(calls) == 1 {
		for _, tc := range calls {
			msg, err := l.runOneToolCall(ctx, tc, callbacks)
			if err != nil {
				return err
			}
			l.conv.Append(msg)
		}
		return nil
	}

	results := make([]conversation.Message, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 1 {
		g.SetLimit(limit)
	}
	for i, tc := range calls {
		i, tc := i, tc
		g.Go(func() error {
			msg, err := l.runOneToolCall(gctx, tc, callbacks)
			if err != nil {
				return err
			}
			results[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, msg := range results {
		l.conv.Append(msg)
	}
	return nil
}

// resolveMaxParallel returns the effective max-parallel-tools constraint:
// an explicit Option wins, then the metadata store's last detection,
// otherwise 0 (unconstrained).
func (l *Loop) resolveMaxParallel() int {
	if l.maxParallel != nil {
		return *l.maxParallel
	}
	if l.meta != nil {
		if limit, ok := l.meta.MaxParallelTools(l.conv.ModelID); ok {
			return limit
		}
	}
	return 0
}

// runOneToolCall consults confirmation, executes, truncates, and returns
// the resulting tool message without mutating the conversation — callers
// append it so that concurrent calls can be ordered deterministically.
func (l *Loop) runOneToolCall(ctx context.Context, tc conversation.ToolCall, callbacks ProcessCallbacks) (conversation.Message, error) {
	if callbacks.OnToolCall != nil {
		callbacks.OnToolCall(tc)
	}

	if l.registry.RequiresConfirmation(tc.Name) {
		confirmed, err := l.confirm.Confirm(ctx, tc.Name, tc.Arguments)
		if err != nil {
			return conversation.Message{}, err
		}
		if !confirmed {
			result := &tools.Result{Success: false, Error: "the user rejected this operation", ErrorKind: errors.KindUserRejected}
			if callbacks.OnToolResult != nil {
				callbacks.OnToolResult(tc, result)
			}
			return l.toolResultMessage(tc, result), nil
		}
	}

	result, err := l.registry.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		return conversation.Message{}, err
	}
	l.truncateResult(result)
	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(tc, result)
	}
	return l.toolResultMessage(tc, result), nil
}

// toolResultMessage serializes result as the tool-role message content the
// model sees next turn.
func (l *Loop) toolResultMessage(tc conversation.ToolCall, result *tools.Result) conversation.Message {
	payload := map[string]interface{}{"success": result.Success}
	if result.Payload != nil {
		payload["payload"] = result.Payload
	}
	if result.Error != "" {
		payload["error"] = map[string]interface{}{"kind": string(result.ErrorKind), "message": result.Error}
	}
	if result.Truncated {
		payload["_truncated"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(fmt.Sprintf(`{"success":false,"error":{"kind":%q,"message":%q}}`, string(errors.KindUnknown), "failed to serialize tool result: "+err.Error()))
	}
	return conversation.Message{Role: conversation.RoleTool, Content: string(body), ToolCallID: tc.ID}
}

// truncateResult applies SPEC_FULL.md §4.5.1: when the result's payload
// carries a "content" string field and the serialized result exceeds the
// cap, that field is shortened to its first and last halves with an
// omission marker, and Truncated is set.
func (l *Loop) truncateResult(result *tools.Result) {
	serialized, err := json.Marshal(result.Payload)
	if err != nil || len(serialized) <= l.resultCap {
		return
	}
	m, ok := result.Payload.(map[string]interface{})
	if !ok {
		return
	}
	content, ok := m["content"].(string)
	if !ok {
		return
	}
	half := l.resultCap / 2
	if len(content) <= half*2 {
		return
	}
	omitted := len(content) - half*2
	m["content"] = fmt.Sprintf("%s\n... [%d characters omitted] ...\n%s", content[:half], omitted, content[len(content)-half:])
	result.Truncated = true
}
