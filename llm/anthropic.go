package llm

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/tools"
)

// AnthropicBackend is a Backend backed by the Anthropic Messages API.
type AnthropicBackend struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

// NewAnthropicBackend constructs a backend for modelName, requiring
// ANTHROPIC_API_KEY in the environment unless apiKey is already set.
func NewAnthropicBackend(apiKey, modelName string, maxTokens int, timeout time.Duration) (*AnthropicBackend, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.KindAuthError, "ANTHROPIC_API_KEY is not set")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicBackend{
		client:    &client,
		model:     modelName,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Every(timeout/10), 1),
	}, nil
}

func (b *AnthropicBackend) Chat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema, stream bool, onRetry func(RetryInfo)) (*ChatResponse, error) {
	return WithRetry(ctx, onRetry, func(ctx context.Context) (*ChatResponse, error) {
		return b.doChat(ctx, messages, toolSchemas)
	})
}

func (b *AnthropicBackend) doChat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema) (*ChatResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.KindTimeout, "rate limiter wait cancelled", err)
	}

	anthropicMessages, systemPrompt := convertMessagesToAnthropic(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(toolSchemas) > 0 {
		params.Tools = make([]anthropic.ToolUnionParam, len(toolSchemas))
		for i, s := range toolSchemas {
			tp := anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: s.Parameters["properties"]},
			}
			params.Tools[i] = anthropic.ToolUnionParam{OfTool: &tp}
		}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicErr(err)
	}
	return processAnthropicResponse(resp), nil
}

func convertMessagesToAnthropic(messages []conversation.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case conversation.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				for _, tc := range msg.ToolCalls {
					argsBytes, err := json.Marshal(tc.Arguments)
					if err != nil {
						continue
					}
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: argsBytes},
					})
				}
				out = append(out, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks})
			} else if msg.Content != "" {
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{{OfText: &anthropic.TextBlockParam{Text: msg.Content}}},
				})
			}
		case conversation.RoleTool:
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCallID,
						Content:   []anthropic.ToolResultBlockParamContentUnion{{OfText: &anthropic.TextBlockParam{Text: msg.Content}}},
					},
				}},
			})
		case conversation.RoleSystem:
			systemPrompt = msg.Content
		}
	}
	return out, systemPrompt
}

func processAnthropicResponse(resp *anthropic.Message) *ChatResponse {
	var content string
	var toolCalls []conversation.ToolCall

	for _, block := range resp.Content {
		switch c := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += c.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			_ = json.Unmarshal(c.Input, &args)
			toolCalls = append(toolCalls, conversation.ToolCall{ID: c.ID, Name: c.Name, Arguments: args})
		}
	}

	finish := FinishStop
	if len(toolCalls) > 0 {
		finish = FinishToolCalls
	} else if string(resp.StopReason) == "max_tokens" {
		finish = FinishLength
	}

	return &ChatResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: conversation.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
}

func (b *AnthropicBackend) ListModels(ctx context.Context) ([]string, error) {
	page, err := b.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, classifyAnthropicErr(err)
	}
	var names []string
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func (b *AnthropicBackend) HealthCheck(ctx context.Context) error {
	_, err := b.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return classifyAnthropicErr(err)
	}
	return nil
}

func (b *AnthropicBackend) Close() error { return nil }

func classifyAnthropicErr(err error) error {
	var apiErr *anthropic.Error
	if stdErrors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return errors.Newf(errors.KindRateLimit, "anthropic: rate limited: %v", err).WithStatus(apiErr.StatusCode)
		case 401, 403:
			return errors.Newf(errors.KindAuthError, "anthropic: authentication failed: %v", err).WithStatus(apiErr.StatusCode)
		case 404:
			return errors.Newf(errors.KindModelNotFound, "anthropic: model not found: %v", err).WithStatus(apiErr.StatusCode)
		default:
			if apiErr.StatusCode >= 500 {
				return errors.Newf(errors.KindServerError, "anthropic: server error: %v", err).WithStatus(apiErr.StatusCode)
			}
		}
	}
	return errors.Wrap(errors.KindUnknown, "anthropic request failed", err)
}
