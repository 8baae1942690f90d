package conversation

import "testing"

func TestAppendPreservesOrder(t *testing.T) {
	c := New("test-model")
	c.Append(Message{Role: RoleUser, Content: "hi"})
	c.Append(Message{Role: RoleAssistant, Content: "hello"})

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Messages[0].Role != RoleUser || c.Messages[1].Role != RoleAssistant {
		t.Error("message order not preserved")
	}
}

func TestHasToolCallInvariant(t *testing.T) {
	c := New("test-model")
	c.Append(Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "list_files", Arguments: map[string]interface{}{"path": "."}},
		},
	})

	if !c.HasToolCall("call_1") {
		t.Error("expected HasToolCall(call_1) to be true after the assistant message was appended")
	}
	if c.HasToolCall("call_unknown") {
		t.Error("expected HasToolCall(call_unknown) to be false")
	}
}

func TestResetClearsStateButKeepsIdentity(t *testing.T) {
	c := New("test-model")
	id := c.ID
	c.Append(Message{Role: RoleUser, Content: "hi"})
	c.Usage.Add(10, 5, 15)

	c.Reset()

	if c.ID != id {
		t.Error("Reset() must not change the conversation id")
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", c.Len())
	}
	if c.Usage.TotalTokens != 0 {
		t.Errorf("Usage.TotalTokens after Reset() = %d, want 0", c.Usage.TotalTokens)
	}
}

func TestTokenUsageAdd(t *testing.T) {
	var u TokenUsage
	u.Add(10, 20, 30)
	u.Add(5, 5, 10)

	if u.PromptTokens != 15 || u.CompletionTokens != 25 || u.TotalTokens != 40 {
		t.Errorf("got %+v, want {15 25 40}", u)
	}
}
