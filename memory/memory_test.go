package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/agentichat/agentichat/conversation"
)

func TestTrimNoOpWhenNoBudget(t *testing.T) {
	m := New(0, CompressionPolicy{})
	msgs := []conversation.Message{{Role: conversation.RoleUser, Content: "hello"}}
	got := m.Trim(msgs)
	if len(got) != 1 {
		t.Fatalf("expected unchanged slice, got %d messages", len(got))
	}
}

func TestTrimInlineShrinksLargeToolMessage(t *testing.T) {
	m := New(100000, CompressionPolicy{})
	big := strings.Repeat("x", inlineShrinkThreshold+1000)
	msgs := []conversation.Message{
		{Role: conversation.RoleSystem, Content: "sys"},
		{Role: conversation.RoleUser, Content: "go"},
		{Role: conversation.RoleAssistant, Content: "ok"},
		{Role: conversation.RoleTool, Content: big},
		{Role: conversation.RoleUser, Content: "next"},
	}
	got := m.Trim(msgs)
	for _, msg := range got {
		if msg.Role == conversation.RoleTool {
			if len(msg.Content) >= len(big) {
				t.Errorf("expected tool content to shrink, got length %d", len(msg.Content))
			}
			if !strings.Contains(msg.Content, "omitted") {
				t.Errorf("expected omission marker in shrunk content")
			}
		}
	}
}

func TestTrimElidesOldestKeepingSystemAndRecent(t *testing.T) {
	m := New(50, CompressionPolicy{}) // tiny budget forces elision
	msgs := []conversation.Message{{Role: conversation.RoleSystem, Content: "sys"}}
	for i := 0; i < 20; i++ {
		msgs = append(msgs, conversation.Message{Role: conversation.RoleUser, Content: strings.Repeat("word ", 20)})
	}
	got := m.Trim(msgs)
	if got[0].Role != conversation.RoleSystem {
		t.Fatalf("expected system message kept first, got %+v", got[0])
	}
	if len(got)-1 < minRecentMessages {
		t.Errorf("expected at least %d non-system messages kept, got %d", minRecentMessages, len(got)-1)
	}
	if len(got) >= len(msgs) {
		t.Errorf("expected elision to shorten the list: got %d, want < %d", len(got), len(msgs))
	}
}

func TestCheckWarningBelowThreshold(t *testing.T) {
	m := New(0, CompressionPolicy{AutoThreshold: 20, WarningThreshold: 0.8})
	lvl := m.CheckWarning(5)
	if lvl.ShouldWarn {
		t.Error("expected no warning well below threshold")
	}
}

func TestCheckWarningNearThreshold(t *testing.T) {
	m := New(0, CompressionPolicy{AutoThreshold: 20, WarningThreshold: 0.8})
	lvl := m.CheckWarning(17)
	if !lvl.ShouldWarn {
		t.Error("expected a warning at 85% of threshold")
	}
	if lvl.OveragePercent != 0 {
		t.Errorf("expected no overage below threshold, got %d", lvl.OveragePercent)
	}
}

func TestCheckWarningOverThresholdReportsOverage(t *testing.T) {
	m := New(0, CompressionPolicy{AutoThreshold: 20, WarningThreshold: 0.8})
	lvl := m.CheckWarning(25)
	if !lvl.ShouldWarn {
		t.Error("expected a warning over threshold")
	}
	if lvl.OveragePercent != 25 {
		t.Errorf("OveragePercent = %d, want 25", lvl.OveragePercent)
	}
}

func TestCheckWarningAutoCompressTrigger(t *testing.T) {
	m := New(0, CompressionPolicy{AutoEnabled: true, AutoThreshold: 20, WarningThreshold: 0.8, MaxMessages: 20, AutoKeep: 5})
	lvl := m.CheckWarning(20)
	if !lvl.ShouldCompress {
		t.Error("expected auto-compress to trigger at max_messages with auto_enabled")
	}
}

func TestCheckWarningAutoCompressTriggerByThresholdAlone(t *testing.T) {
	m := New(0, CompressionPolicy{AutoEnabled: true, AutoThreshold: 20, WarningThreshold: 0.8, AutoKeep: 5})
	lvl := m.CheckWarning(20)
	if !lvl.ShouldCompress {
		t.Error("expected auto-compress to trigger at auto_threshold even with no max_messages configured")
	}
}

func TestCompressReplacesPrefixWithSummary(t *testing.T) {
	msgs := []conversation.Message{
		{Role: conversation.RoleUser, Content: "one"},
		{Role: conversation.RoleAssistant, Content: "two"},
		{Role: conversation.RoleUser, Content: "three"},
		{Role: conversation.RoleAssistant, Content: "four"},
		{Role: conversation.RoleUser, Content: "five"},
		{Role: conversation.RoleAssistant, Content: "six"},
	}
	summarize := func(ctx context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "one") {
			t.Errorf("expected prompt to include compressed messages, got %q", prompt)
		}
		return "summary of the earlier conversation", nil
	}
	out, err := Compress(context.Background(), msgs, CompressOptions{Keep: 2}, summarize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d messages, want 3 (summary + 2 kept)", len(out))
	}
	if out[0].Content != "summary of the earlier conversation" {
		t.Errorf("out[0] = %+v, want summary message", out[0])
	}
	if out[1].Content != "five" || out[2].Content != "six" {
		t.Errorf("expected last two messages kept verbatim, got %+v", out[1:])
	}
}

func TestCompressNoOpWhenTooFewMessages(t *testing.T) {
	msgs := []conversation.Message{{Role: conversation.RoleUser, Content: "one"}}
	out, err := Compress(context.Background(), msgs, CompressOptions{}, func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("summarize should not be called with too few messages")
		return "", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected unchanged slice, got %d messages", len(out))
	}
}
