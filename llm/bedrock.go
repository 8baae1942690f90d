package llm

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/tools"
)

// BedrockBackend is a Backend backed by Anthropic models served through AWS
// Bedrock's InvokeModel API.
type BedrockBackend struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
	limiter   *rate.Limiter
}

// NewBedrockBackend constructs a backend for modelID, loading AWS
// credentials from the default chain (environment, shared config, IAM
// role).
func NewBedrockBackend(ctx context.Context, modelID string, maxTokens int, timeout time.Duration) (*BedrockBackend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.KindAuthError, "loading AWS config", err)
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BedrockBackend{
		client:    bedrockruntime.NewFromConfig(cfg),
		modelID:   modelID,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Every(timeout/10), 1),
	}, nil
}

func (b *BedrockBackend) Chat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema, stream bool, onRetry func(RetryInfo)) (*ChatResponse, error) {
	return WithRetry(ctx, onRetry, func(ctx context.Context) (*ChatResponse, error) {
		return b.doChat(ctx, messages, toolSchemas)
	})
}

func (b *BedrockBackend) doChat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema) (*ChatResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.KindTimeout, "rate limiter wait cancelled", err)
	}

	bedrockMessages, systemPrompt := convertMessagesToBedrock(messages)
	body, err := buildBedrockRequest(bedrockMessages, systemPrompt, toolSchemas, b.maxTokens)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "building bedrock request", err)
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classifyBedrockErr(err)
	}
	return processBedrockResponse(resp.Body)
}

func convertMessagesToBedrock(messages []conversation.Message) ([]map[string]interface{}, string) {
	var out []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleUser:
			out = append(out, map[string]interface{}{
				"role":    "user",
				"content": []map[string]interface{}{{"type": "text", "text": msg.Content}},
			})
		case conversation.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				var uses []map[string]interface{}
				for _, tc := range msg.ToolCalls {
					uses = append(uses, map[string]interface{}{"type": "tool_use", "id": tc.ID, "name": tc.Name, "input": tc.Arguments})
				}
				out = append(out, map[string]interface{}{"role": "assistant", "content": uses})
			} else if msg.Content != "" {
				out = append(out, map[string]interface{}{
					"role":    "assistant",
					"content": []map[string]interface{}{{"type": "text", "text": msg.Content}},
				})
			}
		case conversation.RoleTool:
			out = append(out, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{{
					"type": "tool_result", "tool_use_id": msg.ToolCallID, "content": msg.Content,
				}},
			})
		case conversation.RoleSystem:
			systemPrompt = msg.Content
		}
	}
	return out, systemPrompt
}

func buildBedrockRequest(messages []map[string]interface{}, systemPrompt string, toolSchemas []tools.Schema, maxTokens int) ([]byte, error) {
	req := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          messages,
	}
	if systemPrompt != "" {
		req["system"] = systemPrompt
	}
	if len(toolSchemas) > 0 {
		var wireTools []map[string]interface{}
		for _, s := range toolSchemas {
			wireTools = append(wireTools, map[string]interface{}{
				"name":         s.Name,
				"description":  s.Description,
				"input_schema": s.Parameters,
			})
		}
		req["tools"] = wireTools
	}
	return json.Marshal(req)
}

func processBedrockResponse(body []byte) (*ChatResponse, error) {
	var parsed struct {
		Content []struct {
			Type  string                 `json:"type"`
			Text  string                 `json:"text"`
			ID    string                 `json:"id"`
			Name  string                 `json:"name"`
			Input map[string]interface{} `json:"input"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
		Error map[string]interface{} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "decoding bedrock response", err)
	}
	if parsed.Error != nil {
		return nil, errors.Newf(errors.KindServerError, "bedrock API error: %v", parsed.Error)
	}

	var content string
	var toolCalls []conversation.ToolCall
	for i, item := range parsed.Content {
		switch item.Type {
		case "text":
			content += item.Text
		case "tool_use":
			id := item.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, item.Name)
			}
			toolCalls = append(toolCalls, conversation.ToolCall{ID: id, Name: item.Name, Arguments: item.Input})
		}
	}

	finish := FinishStop
	switch parsed.StopReason {
	case "tool_use":
		finish = FinishToolCalls
	case "max_tokens":
		finish = FinishLength
	}

	return &ChatResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: conversation.TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

func (b *BedrockBackend) ListModels(ctx context.Context) ([]string, error) {
	return nil, errors.New(errors.KindToolNotAvailable, "bedrock: model listing requires the bedrock (non-runtime) API, not wired")
}

func (b *BedrockBackend) HealthCheck(ctx context.Context) error {
	_, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        []byte(`{"anthropic_version":"bedrock-2023-05-31","max_tokens":1,"messages":[{"role":"user","content":"ping"}]}`),
	})
	if err != nil {
		return classifyBedrockErr(err)
	}
	return nil
}

func (b *BedrockBackend) Close() error { return nil }

func classifyBedrockErr(err error) error {
	var apiErr smithy.APIError
	if stdErrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return errors.Newf(errors.KindRateLimit, "bedrock: rate limited: %v", err)
		case "AccessDeniedException", "UnrecognizedClientException":
			return errors.Newf(errors.KindAuthError, "bedrock: authentication failed: %v", err)
		case "ResourceNotFoundException", "ModelNotReadyException":
			return errors.Newf(errors.KindModelNotFound, "bedrock: model not found: %v", err)
		case "ModelTimeoutException":
			return errors.Newf(errors.KindTimeout, "bedrock: model timed out: %v", err)
		}
	}
	return errors.Wrap(errors.KindServerError, "bedrock request failed", err)
}
