package llm

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"os"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/time/rate"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/tools"
)

// OpenAIBackend is a Backend backed by the OpenAI Chat Completions API
// (and any OpenAI-compatible endpoint reachable via OPENAI_BASE_URL).
type OpenAIBackend struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIBackend constructs a backend for modelName, requiring
// OPENAI_API_KEY in the environment unless apiKey is already set.
func NewOpenAIBackend(apiKey, baseURL, modelName string, timeout time.Duration) (*OpenAIBackend, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.KindAuthError, "OPENAI_API_KEY is not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := openai.NewClient(opts...)
	return &OpenAIBackend{client: &c, model: modelName, limiter: rate.NewLimiter(rate.Every(timeout/10), 1)}, nil
}

func (b *OpenAIBackend) Chat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema, stream bool, onRetry func(RetryInfo)) (*ChatResponse, error) {
	return WithRetry(ctx, onRetry, func(ctx context.Context) (*ChatResponse, error) {
		return b.doChat(ctx, messages, toolSchemas)
	})
}

func (b *OpenAIBackend) doChat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema) (*ChatResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.KindTimeout, "rate limiter wait cancelled", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: convertMessagesToOpenAI(messages),
	}
	if len(toolSchemas) > 0 {
		params.Tools = convertToolsToOpenAI(toolSchemas)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIErr(err)
	}
	return processOpenAIResponse(resp), nil
}

func convertMessagesToOpenAI(messages []conversation.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleAssistant:
			assistant := openai.ChatCompletionMessage{Role: "assistant", Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Arguments)
				if err != nil {
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID: tc.ID, Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{Name: tc.Name, Arguments: string(argsBytes)},
				})
			}
			out = append(out, assistant.ToParam())
		case conversation.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case conversation.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func convertToolsToOpenAI(schemas []tools.Schema) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        s.Name,
			Description: openai.String(s.Description),
			Parameters:  openai.FunctionParameters(s.Parameters),
		}))
	}
	return out
}

func processOpenAIResponse(resp *openai.ChatCompletion) *ChatResponse {
	if len(resp.Choices) == 0 {
		return &ChatResponse{FinishReason: FinishStop}
	}
	choice := resp.Choices[0]
	message := choice.Message

	var toolCalls []conversation.ToolCall
	for _, tc := range message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]interface{}{}
		}
		toolCalls = append(toolCalls, conversation.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	if len(toolCalls) == 0 {
		toolCalls = ExtractToolCalls(message.Content)
	}

	finish := FinishStop
	switch choice.FinishReason {
	case "tool_calls":
		finish = FinishToolCalls
	case "length":
		finish = FinishLength
	default:
		if len(toolCalls) > 0 {
			finish = FinishToolCalls
		}
	}

	return &ChatResponse{
		Content:      message.Content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: conversation.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
}

func (b *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	page, err := b.client.Models.List(ctx)
	if err != nil {
		return nil, classifyOpenAIErr(err)
	}
	var names []string
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func (b *OpenAIBackend) HealthCheck(ctx context.Context) error {
	_, err := b.client.Models.List(ctx)
	if err != nil {
		return classifyOpenAIErr(err)
	}
	return nil
}

func (b *OpenAIBackend) Close() error { return nil }

func classifyOpenAIErr(err error) error {
	var apiErr *openai.Error
	if stdErrors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return errors.Newf(errors.KindRateLimit, "openai: rate limited: %v", err).WithStatus(apiErr.StatusCode)
		case 401, 403:
			return errors.Newf(errors.KindAuthError, "openai: authentication failed: %v", err).WithStatus(apiErr.StatusCode)
		case 404:
			return errors.Newf(errors.KindModelNotFound, "openai: model not found: %v", err).WithStatus(apiErr.StatusCode)
		default:
			if apiErr.StatusCode >= 500 {
				return errors.Newf(errors.KindServerError, "openai: server error: %v", err).WithStatus(apiErr.StatusCode)
			}
		}
	}
	return errors.Wrap(errors.KindUnknown, "openai request failed", err)
}
