package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	stderrors "github.com/agentichat/agentichat/errors"

	"github.com/agentichat/agentichat/confirmation"
	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/llm"
	"github.com/agentichat/agentichat/tools"
)

// fakeBackend replays a scripted sequence of ChatResponses, one per Chat
// call, so tests can drive specific loop branches deterministically.
type fakeBackend struct {
	responses     []*llm.ChatResponse
	errs          []error
	calls         int
	simulateRetry bool
}

func (f *fakeBackend) Chat(ctx context.Context, messages []conversation.Message, schemas []tools.Schema, stream bool, onRetry func(llm.RetryInfo)) (*llm.ChatResponse, error) {
	i := f.calls
	f.calls++
	if f.simulateRetry && onRetry != nil {
		onRetry(llm.RetryInfo{Attempt: 1, MaxAttempts: 4, Err: errors.New("simulated transient error")})
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return &llm.ChatResponse{Content: "out of script", FinishReason: llm.FinishStop}, nil
	}
	return f.responses[i], nil
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeBackend) HealthCheck(ctx context.Context) error            { return nil }
func (f *fakeBackend) Close() error                                     { return nil }

// echoTool returns its "value" argument as the payload's "content" field.
type echoTool struct {
	confirm tools.ConfirmPolicy
	calls   int
}

func (t *echoTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "echo",
		Description: "echoes its input",
		Parameters:  map[string]interface{}{"type": "object"},
		Confirm:     t.confirm,
	}
}

func (t *echoTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	t.calls++
	value, _ := args["value"].(string)
	return &tools.Result{Success: true, Payload: map[string]interface{}{"content": value}}, nil
}

func newRegistry(confirm tools.ConfirmPolicy) (*tools.Registry, *echoTool) {
	r := tools.NewRegistry()
	et := &echoTool{confirm: confirm}
	r.Register(et)
	return r, et
}

// newLoop wires a Loop whose confirmation manager starts in AUTO mode so
// tests that don't care about confirmation never block reading stdin.
func newLoop(backend llm.Backend, reg *tools.Registry, opts ...Option) *Loop {
	confirm := confirmation.New(strings.NewReader(""), io.Discard)
	confirm.Cycle() // ASK -> AUTO
	conv := conversation.New("test-model")
	return New(backend, reg, confirm, nil, conv, opts...)
}

func TestProcessUserInputNoToolCallsReturnsFinalReply(t *testing.T) {
	reg, _ := newRegistry(tools.ConfirmNever)
	backend := &fakeBackend{responses: []*llm.ChatResponse{
		{Content: "hello there", FinishReason: llm.FinishStop},
	}}
	l := newLoop(backend, reg)

	var gotMessage string
	reply, err := l.ProcessUserInput(context.Background(), "hi", ProcessCallbacks{
		OnAssistantMessage: func(content string) { gotMessage = content },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("got reply %q, want %q", reply, "hello there")
	}
	if gotMessage != "hello there" {
		t.Errorf("OnAssistantMessage got %q, want %q", gotMessage, "hello there")
	}
}

func TestProcessUserInputExecutesToolCallThenReturnsReply(t *testing.T) {
	reg, et := newRegistry(tools.ConfirmNever)
	backend := &fakeBackend{responses: []*llm.ChatResponse{
		{
			FinishReason: llm.FinishToolCalls,
			ToolCalls: []conversation.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: map[string]interface{}{"value": "ping"}},
			},
		},
		{Content: "done", FinishReason: llm.FinishStop},
	}}
	l := newLoop(backend, reg)

	var gotResult *tools.Result
	reply, err := l.ProcessUserInput(context.Background(), "use the tool", ProcessCallbacks{
		OnToolResult: func(tc conversation.ToolCall, result *tools.Result) { gotResult = result },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "done" {
		t.Errorf("got reply %q, want %q", reply, "done")
	}
	if et.calls != 1 {
		t.Errorf("expected the tool to run once, ran %d times", et.calls)
	}
	if gotResult == nil || !gotResult.Success {
		t.Fatalf("expected a successful result, got %+v", gotResult)
	}

	found := false
	for _, m := range l.conv.Messages {
		if m.Role == conversation.RoleTool && m.ToolCallID == "call-1" {
			found = true
		}
	}
	if !found {
		t.Error("expected a tool-role message referencing call-1 to be appended")
	}
}

func TestProcessUserInputRejectedConfirmationSkipsExecution(t *testing.T) {
	reg, et := newRegistry(tools.ConfirmAlways)
	backend := &fakeBackend{responses: []*llm.ChatResponse{
		{
			FinishReason: llm.FinishToolCalls,
			ToolCalls: []conversation.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: map[string]interface{}{"value": "ping"}},
			},
		},
		{Content: "ok", FinishReason: llm.FinishStop},
	}}
	l := newLoop(backend, reg)
	// Stay in ASK mode, scripted to answer "no", so rejection is exercised
	// instead of the AUTO mode newLoop sets up by default.
	l.confirm = confirmation.New(strings.NewReader("N\n"), io.Discard)

	reply, err := l.ProcessUserInput(context.Background(), "use the tool", ProcessCallbacks{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "ok" {
		t.Errorf("got reply %q, want %q", reply, "ok")
	}
	if et.calls != 0 {
		t.Errorf("expected the tool not to run after rejection, ran %d times", et.calls)
	}
}

func TestProcessUserInputFinishLengthContinuesWithSyntheticMessage(t *testing.T) {
	reg, _ := newRegistry(tools.ConfirmNever)
	backend := &fakeBackend{responses: []*llm.ChatResponse{
		{Content: "truncated output...", FinishReason: llm.FinishLength},
		{Content: "final answer", FinishReason: llm.FinishStop},
	}}
	l := newLoop(backend, reg)

	reply, err := l.ProcessUserInput(context.Background(), "write a lot", ProcessCallbacks{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "final answer" {
		t.Errorf("got reply %q, want %q", reply, "final answer")
	}
	if backend.calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", backend.calls)
	}

	foundSynthetic := false
	for _, m := range l.conv.Messages {
		if m.Role == conversation.RoleUser && m.Content == "[System] Your response was truncated; please produce a more concise answer." {
			foundSynthetic = true
		}
	}
	if !foundSynthetic {
		t.Error("expected a synthetic continuation message to be appended")
	}
}

func TestProcessUserInputExceedsIterationCeilingHardFails(t *testing.T) {
	reg, _ := newRegistry(tools.ConfirmNever)
	var responses []*llm.ChatResponse
	for i := 0; i < 5; i++ {
		responses = append(responses, &llm.ChatResponse{Content: "still going", FinishReason: llm.FinishLength})
	}
	backend := &fakeBackend{responses: responses}
	l := newLoop(backend, reg, WithMaxIterations(3))

	_, err := l.ProcessUserInput(context.Background(), "never finish", ProcessCallbacks{})
	if err == nil {
		t.Fatal("expected an error when the iteration ceiling is exceeded")
	}
	if stderrors.KindOf(err) != stderrors.KindMaxIterations {
		t.Errorf("got kind %v, want %v", stderrors.KindOf(err), stderrors.KindMaxIterations)
	}
}

func TestProcessUserInputBackendErrorPropagates(t *testing.T) {
	reg, _ := newRegistry(tools.ConfirmNever)
	backend := &fakeBackend{errs: []error{errors.New("boom")}}
	l := newLoop(backend, reg)

	_, err := l.ProcessUserInput(context.Background(), "hi", ProcessCallbacks{})
	if err == nil {
		t.Fatal("expected the backend error to propagate")
	}
}

func TestProcessUserInputSurfacesRetryInfoToCallback(t *testing.T) {
	reg, _ := newRegistry(tools.ConfirmNever)
	backend := &fakeBackend{
		simulateRetry: true,
		responses:     []*llm.ChatResponse{{Content: "hi", FinishReason: llm.FinishStop}},
	}
	l := newLoop(backend, reg)

	var gotRetry llm.RetryInfo
	retried := false
	_, err := l.ProcessUserInput(context.Background(), "hello", ProcessCallbacks{
		OnRetry: func(info llm.RetryInfo) { retried = true; gotRetry = info },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !retried {
		t.Fatal("expected OnRetry to be invoked via the backend's onRetry callback")
	}
	if gotRetry.MaxAttempts != 4 {
		t.Errorf("got MaxAttempts %d, want 4", gotRetry.MaxAttempts)
	}
}

func TestResetWipesConversationAndConfirmationMode(t *testing.T) {
	reg, _ := newRegistry(tools.ConfirmNever)
	backend := &fakeBackend{responses: []*llm.ChatResponse{
		{Content: "hi there", FinishReason: llm.FinishStop},
	}}
	l := newLoop(backend, reg)
	l.confirm.Cycle() // AUTO -> FORCE, to verify Reset returns to ASK

	if _, err := l.ProcessUserInput(context.Background(), "hello", ProcessCallbacks{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.conv.Len() == 0 {
		t.Fatal("expected messages to have been appended before Reset")
	}

	l.Reset()

	if l.conv.Len() != 0 {
		t.Errorf("expected an empty conversation after Reset, got %d messages", l.conv.Len())
	}
	if l.confirm.Mode() != confirmation.ModeAsk {
		t.Errorf("expected ASK mode after Reset, got %v", l.confirm.Mode())
	}
}
