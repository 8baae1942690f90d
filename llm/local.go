package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/tools"
)

// LocalBackend talks to a locally-hosted, Ollama-compatible chat API over
// plain HTTP. No ecosystem Go SDK for this wire format exists in the
// retrieved examples, so it is implemented directly against net/http, the
// same way the original client drives the API directly rather than through
// a provider SDK.
type LocalBackend struct {
	client  *http.Client
	url     string
	model   string
	limiter *rate.Limiter
}

// NewLocalBackend constructs a backend bound to baseURL (e.g.
// http://localhost:11434) and modelName, pacing requests from timeout.
func NewLocalBackend(baseURL, modelName string, timeout time.Duration) *LocalBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LocalBackend{
		client:  &http.Client{Timeout: timeout},
		url:     baseURL,
		model:   modelName,
		limiter: rate.NewLimiter(rate.Every(timeout/10), 1),
	}
}

type localMessage struct {
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	ToolCalls []localToolCallWire `json:"tool_calls,omitempty"`
}

type localToolCallWire struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function localFunctionCall `json:"function"`
}

type localFunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type localChatRequest struct {
	Model    string                 `json:"model"`
	Messages []localMessage         `json:"messages"`
	Stream   bool                   `json:"stream"`
	Tools    []tools.Schema         `json:"tools,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type localChatResponse struct {
	Message struct {
		Content   string              `json:"content"`
		ToolCalls []localToolCallWire `json:"tool_calls,omitempty"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (b *LocalBackend) Chat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema, stream bool, onRetry func(RetryInfo)) (*ChatResponse, error) {
	return WithRetry(ctx, onRetry, func(ctx context.Context) (*ChatResponse, error) {
		return b.doChat(ctx, messages, toolSchemas)
	})
}

func (b *LocalBackend) doChat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema) (*ChatResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.KindTimeout, "rate limiter wait cancelled", err)
	}

	req := localChatRequest{
		Model:   b.model,
		Stream:  false,
		Tools:   toolSchemas,
		Options: map[string]interface{}{"temperature": 0.7},
	}
	for _, msg := range messages {
		wire := localMessage{Role: string(msg.Role), Content: msg.Content}
		for _, tc := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, localToolCallWire{
				ID: tc.ID, Type: "function",
				Function: localFunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		req.Messages = append(req.Messages, wire)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "marshaling local chat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "building local chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, classifyHTTPClientErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, "local backend")
	}

	var parsed localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "decoding local chat response", err)
	}

	content := parsed.Message.Content
	var toolCalls []conversation.ToolCall
	for _, tc := range parsed.Message.ToolCalls {
		toolCalls = append(toolCalls, conversation.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	if len(toolCalls) == 0 {
		toolCalls = ExtractToolCalls(content)
	}

	finish := FinishStop
	if len(toolCalls) > 0 {
		finish = FinishToolCalls
	}

	return &ChatResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: conversation.TokenUsage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		},
	}, nil
}

func (b *LocalBackend) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url+"/api/tags", nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "building list-models request", err)
	}
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, classifyHTTPClientErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, "local backend")
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "decoding list-models response", err)
	}
	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (b *LocalBackend) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url+"/api/tags", nil)
	if err != nil {
		return errors.Wrap(errors.KindUnknown, "building health-check request", err)
	}
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return classifyHTTPClientErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyHTTPStatus(resp.StatusCode, "local backend")
	}
	return nil
}

func (b *LocalBackend) Close() error { return nil }

// classifyHTTPStatus maps an HTTP status code to the shared error taxonomy.
func classifyHTTPStatus(code int, provider string) error {
	switch {
	case code == http.StatusTooManyRequests:
		return errors.Newf(errors.KindRateLimit, "%s: rate limited (429)", provider).WithStatus(code)
	case code == http.StatusNotFound:
		return errors.Newf(errors.KindModelNotFound, "%s: model not found (404)", provider).WithStatus(code)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Newf(errors.KindAuthError, "%s: authentication failed (%d)", provider, code).WithStatus(code)
	case code >= 500:
		return errors.Newf(errors.KindServerError, "%s: server error (%d)", provider, code).WithStatus(code)
	default:
		return errors.Newf(errors.KindUnknown, "%s: unexpected HTTP status %d", provider, code).WithStatus(code)
	}
}

func classifyHTTPClientErr(err error) error {
	return errors.Wrap(errors.KindTimeout, "request failed", err)
}
