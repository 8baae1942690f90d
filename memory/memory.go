// Package memory implements the Memory Manager: non-destructive, per-request
// trimming that keeps an outgoing message list inside a backend's context
// budget, destructive compression that replaces conversation history with an
// LLM-generated summary, and the warning/auto-compression policy that drives
// both from the host's main loop.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/llm"
)

const (
	// inlineShrinkThreshold is the content length above which a tool
	// message is shrunk in Phase A.
	inlineShrinkThreshold = 2000
	// inlineShrinkKeep is how many characters survive at each end of a
	// shrunk tool message.
	inlineShrinkKeep = 500
	// minRecentMessages is the floor Phase B will never elide below.
	minRecentMessages = 4
	// targetBudgetRatio leaves headroom for the response and tool schemas.
	targetBudgetRatio = 0.8
)

// Manager bounds outgoing requests to a backend's context window and tracks
// the message-count thresholds that drive compression warnings and
// auto-compression.
type Manager struct {
	contextMaxTokens int
	compression      CompressionPolicy
}

// CompressionPolicy mirrors config.CompressionConfig without importing the
// config package, keeping memory free of a dependency on the host's config
// schema.
type CompressionPolicy struct {
	AutoEnabled      bool
	AutoThreshold    int
	AutoKeep         int
	WarningThreshold float64
	MaxMessages      int
}

// New constructs a Manager. contextMaxTokens of 0 disables trimming
// entirely (Trim becomes a no-op).
func New(contextMaxTokens int, compression CompressionPolicy) *Manager {
	return &Manager{contextMaxTokens: contextMaxTokens, compression: compression}
}

// Trim returns a possibly-shortened copy of messages suitable for sending to
// the backend this turn. The canonical conversation log passed in is never
// mutated (SPEC_FULL.md §4.7).
func (m *Manager) Trim(messages []conversation.Message) []conversation.Message {
	if m.contextMaxTokens <= 0 {
		return messages
	}
	target := int(float64(m.contextMaxTokens) * targetBudgetRatio)

	trimmed := inlineShrinkToolMessages(messages)
	return elideOldestUntilFits(trimmed, target)
}

// inlineShrinkToolMessages is Phase A: tool messages over the threshold are
// rewritten keeping the first and last inlineShrinkKeep characters.
func inlineShrinkToolMessages(messages []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, len(messages))
	copy(out, messages)
	for i, msg := range out {
		if msg.Role != conversation.RoleTool || len(msg.Content) <= inlineShrinkThreshold {
			continue
		}
		head := msg.Content[:inlineShrinkKeep]
		tail := msg.Content[len(msg.Content)-inlineShrinkKeep:]
		omitted := len(msg.Content) - 2*inlineShrinkKeep
		out[i].Content = fmt.Sprintf("%s\n... [%d characters omitted] ...\n%s", head, omitted, tail)
	}
	return out
}

// elideOldestUntilFits is Phase B: the system message (if present) and at
// least the last minRecentMessages non-system messages are always kept;
// older non-system messages are dropped from the oldest end until the
// estimate fits target.
func elideOldestUntilFits(messages []conversation.Message, target int) []conversation.Message {
	if llm.EstimateMessageTokens(messages) <= target {
		return messages
	}

	var system *conversation.Message
	rest := make([]conversation.Message, 0, len(messages))
	for i := range messages {
		if messages[i].Role == conversation.RoleSystem && system == nil {
			s := messages[i]
			system = &s
			continue
		}
		rest = append(rest, messages[i])
	}

	for len(rest) > minRecentMessages {
		candidate := buildCandidate(system, rest[1:])
		if llm.EstimateMessageTokens(candidate) <= target {
			return candidate
		}
		rest = rest[1:]
	}
	return buildCandidate(system, rest)
}

func buildCandidate(system *conversation.Message, rest []conversation.Message) []conversation.Message {
	if system == nil {
		out := make([]conversation.Message, len(rest))
		copy(out, rest)
		return out
	}
	out := make([]conversation.Message, 0, len(rest)+1)
	out = append(out, *system)
	out = append(out, rest...)
	return out
}

// WarningLevel describes whether a compression nudge or an automatic
// compression should fire after the current message count.
type WarningLevel struct {
	ShouldWarn     bool
	ShouldCompress bool
	MessageCount   int
	Threshold      int
	OveragePercent int // only meaningful when MessageCount > Threshold
}

// CheckWarning computes the warning/auto-compression decision for the
// current message count (SPEC_FULL.md §4.7).
func (m *Manager) CheckWarning(messageCount int) WarningLevel {
	lvl := WarningLevel{MessageCount: messageCount}
	if m.compression.AutoThreshold <= 0 {
		return lvl
	}
	lvl.Threshold = m.compression.AutoThreshold
	ratio := float64(messageCount) / float64(m.compression.AutoThreshold)
	if ratio >= m.compression.WarningThreshold {
		lvl.ShouldWarn = true
		if messageCount > m.compression.AutoThreshold {
			lvl.OveragePercent = int((ratio - 1) * 100)
		}
	}
	if m.compression.AutoEnabled {
		if m.compression.MaxMessages > 0 && messageCount >= m.compression.MaxMessages {
			lvl.ShouldCompress = true
		}
		if messageCount >= m.compression.AutoThreshold {
			lvl.ShouldCompress = true
		}
	}
	return lvl
}

// AutoKeepMessages returns how many of the most recent messages an
// auto-triggered compression should leave untouched.
func (m *Manager) AutoKeepMessages() int {
	return m.compression.AutoKeep
}

// CompressOptions configures one compression pass.
type CompressOptions struct {
	// Keep is how many of the most recent messages survive untouched.
	// 0 means compress the entire conversation.
	Keep int
	// Max caps the conversation length after compression: when the summary
	// plus the kept tail exceeds Max, the oldest kept messages are dropped
	// so that the result has at most Max messages.
	Max int
}

// Compress replaces the prefix of messages (everything except the last
// Keep) with a single assistant summary message, generated by summarize.
// Compression mutates nothing in place; it returns the new canonical list.
func Compress(ctx context.Context, messages []conversation.Message, opts CompressOptions, summarize func(ctx context.Context, prompt string) (string, error)) ([]conversation.Message, error) {
	if len(messages) < minRecentMessages {
		return messages, nil
	}

	keep := opts.Keep
	if keep < 0 {
		keep = 0
	}
	if keep >= len(messages) {
		return messages, nil
	}

	var toCompress, toKeep []conversation.Message
	if keep > 0 {
		toCompress = messages[:len(messages)-keep]
		toKeep = messages[len(messages)-keep:]
	} else {
		toCompress = messages
	}

	summary, err := summarize(ctx, buildSummaryPrompt(toCompress))
	if err != nil {
		return nil, err
	}

	out := make([]conversation.Message, 0, len(toKeep)+1)
	out = append(out, conversation.Message{Role: conversation.RoleAssistant, Content: summary})
	out = append(out, toKeep...)

	if opts.Max > 0 && len(out) > opts.Max {
		out = append(out[:1], out[len(out)-(opts.Max-1):]...)
	}
	return out, nil
}

// buildSummaryPrompt mirrors the original's own résumé instructions
// (original_source cli/app.py, _handle_compress_command).
func buildSummaryPrompt(messages []conversation.Message) string {
	var lines []string
	for _, msg := range messages {
		role := "User"
		if msg.Role == conversation.RoleAssistant {
			role = "Assistant"
		}
		if msg.Content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return fmt.Sprintf(
		"Summarize this conversation concisely but completely.\n"+
			"Preserve every important point, decision, and piece of context still needed.\n"+
			"The summary will be used as context to continue the conversation.\n\n"+
			"Conversation to summarize:\n%s\n\nStructured summary:",
		strings.Join(lines, "\n"),
	)
}
