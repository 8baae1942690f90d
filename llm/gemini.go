package llm

import (
	"context"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/tools"
)

// GeminiBackend is a Backend backed by the Google Gemini API.
//
// Decided (see DESIGN.md): unlike the teacher's original Gemini client,
// which executed matched tools itself inside response processing, this
// backend only ever returns tool calls to the caller — tool execution stays
// the agent loop's job for every backend, so confirmation policy and the
// registry are consulted uniformly.
type GeminiBackend struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	limiter *rate.Limiter
}

// NewGeminiBackend constructs a backend for modelName, requiring
// GEMINI_API_KEY in the environment unless apiKey is already set.
func NewGeminiBackend(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiBackend, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.KindAuthError, "GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "creating genai client", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiBackend{
		client:  client,
		model:   client.GenerativeModel(modelName),
		limiter: rate.NewLimiter(rate.Every(timeout/10), 1),
	}, nil
}

func (b *GeminiBackend) Chat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema, stream bool, onRetry func(RetryInfo)) (*ChatResponse, error) {
	return WithRetry(ctx, onRetry, func(ctx context.Context) (*ChatResponse, error) {
		return b.doChat(ctx, messages, toolSchemas)
	})
}

func (b *GeminiBackend) doChat(ctx context.Context, messages []conversation.Message, toolSchemas []tools.Schema) (*ChatResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.KindTimeout, "rate limiter wait cancelled", err)
	}
	if len(messages) == 0 {
		return &ChatResponse{FinishReason: FinishStop}, nil
	}

	b.model.Tools = convertToolsToGemini(toolSchemas)

	history := convertMessagesToGemini(messages[:len(messages)-1])
	last := convertMessagesToGemini(messages[len(messages)-1:])

	chat := b.model.StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, last[0].Parts...)
	if err != nil {
		return nil, classifyGeminiErr(err)
	}
	return processGeminiResponse(resp)
}

func convertMessagesToGemini(messages []conversation.Message) []*genai.Content {
	var out []*genai.Content
	for _, msg := range messages {
		role := "user"
		if msg.Role == conversation.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return out
}

func convertToolsToGemini(schemas []tools.Schema) []*genai.Tool {
	if len(schemas) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, s := range schemas {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func processGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New(errors.KindServerError, "gemini returned an empty response")
	}

	var content string
	var toolCalls []conversation.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			content += string(v)
		case genai.FunctionCall:
			toolCalls = append(toolCalls, conversation.ToolCall{ID: newCallID(), Name: v.Name, Arguments: v.Args})
		}
	}

	finish := FinishStop
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		finish = FinishLength
	default:
		if len(toolCalls) > 0 {
			finish = FinishToolCalls
		}
	}

	usage := conversation.TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &ChatResponse{Content: content, ToolCalls: toolCalls, FinishReason: finish, Usage: usage}, nil
}

func (b *GeminiBackend) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	iter := b.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err != nil {
			break
		}
		names = append(names, m.Name)
	}
	return names, nil
}

func (b *GeminiBackend) HealthCheck(ctx context.Context) error {
	iter := b.client.ListModels(ctx)
	_, err := iter.Next()
	if err != nil && err.Error() != "no more items in iterator" {
		return classifyGeminiErr(err)
	}
	return nil
}

func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

func classifyGeminiErr(err error) error {
	return errors.Wrap(errors.KindUnknown, "gemini request failed", err)
}
