package llm

import (
	"context"
	"testing"
	"time"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
)

// shrinkRetryDelays swaps in millisecond-scale backoff for the duration of a
// test, restoring the production delays on cleanup.
func shrinkRetryDelays(t *testing.T) {
	t.Helper()
	original := retryDelays
	retryDelays = []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	t.Cleanup(func() { retryDelays = original })
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), nil, func(ctx context.Context) (*ChatResponse, error) {
		attempts++
		return nil, errors.New(errors.KindAuthError, "bad key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-retryable should not retry)", attempts)
	}
}

func TestWithRetrySucceedsAfterRetryableErrors(t *testing.T) {
	shrinkRetryDelays(t)
	attempts := 0
	resp, err := WithRetry(context.Background(), nil, func(ctx context.Context) (*ChatResponse, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New(errors.KindServerError, "transient")
		}
		return &ChatResponse{Content: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Content)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	shrinkRetryDelays(t)
	attempts := 0
	_, err := WithRetry(context.Background(), nil, func(ctx context.Context) (*ChatResponse, error) {
		attempts++
		return nil, errors.New(errors.KindRateLimit, "still limited")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != len(retryDelays)+1 {
		t.Errorf("attempts = %d, want %d", attempts, len(retryDelays)+1)
	}
}

func TestEstimateTokensScalesWithLength(t *testing.T) {
	short := EstimateTokens("hi")
	long := EstimateTokens("this is a considerably longer string of text")
	if long <= short {
		t.Errorf("expected longer string to estimate more tokens: short=%d long=%d", short, long)
	}
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty string")
	}
}

func TestEstimateMessageTokensIncludesToolCallArguments(t *testing.T) {
	withoutArgs := []conversation.Message{{
		Role: conversation.RoleAssistant,
		ToolCalls: []conversation.ToolCall{
			{Name: "read_file", Arguments: map[string]interface{}{}},
		},
	}}
	withArgs := []conversation.Message{{
		Role: conversation.RoleAssistant,
		ToolCalls: []conversation.ToolCall{
			{Name: "read_file", Arguments: map[string]interface{}{"path": "a-fairly-long-file-path-name.go"}},
		},
	}}
	if EstimateMessageTokens(withArgs) <= EstimateMessageTokens(withoutArgs) {
		t.Errorf("expected tool-call arguments to meaningfully contribute to the estimate")
	}
}
