package provider

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider against any OpenAI-compatible chat
// completions endpoint. Pointing BaseURL at an Ollama server's /v1 path
// runs fully local inference.
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible API.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// Ollama accepts any key; the client requires a non-empty one.
		apiKey = "unused"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		name:   "openai",
	}, nil
}

// NewOllamaProvider creates a provider for a local Ollama server via its
// OpenAI-compatible endpoint.
func NewOllamaProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	p, err := NewOpenAIProvider(cfg)
	if err != nil {
		return nil, err
	}
	p.name = "ollama"
	return p, nil
}

// Chat implements Provider.Chat.
func (p *OpenAIProvider) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		Temperature: float32(p.config.Temperature),
		Messages:    p.convertMessages(systemPrompt, messages),
	}

	if len(tools) > 0 {
		req.Tools = make([]openai.Tool, 0, len(tools))
		for _, tool := range tools {
			req.Tools = append(req.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.InputSchema,
				},
			})
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, unavailable(err, "chat completion call")
	}
	if len(resp.Choices) == 0 {
		return nil, malformed("chat completion returned no choices")
	}

	return p.convertResponse(&resp), nil
}

// Name implements Provider.Name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model implements Provider.Model.
func (p *OpenAIProvider) Model() string {
	return p.config.Model
}

func (p *OpenAIProvider) convertMessages(systemPrompt string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, msg := range messages {
		// Tool results map to one "tool" role message per result.
		if len(msg.ToolResult) > 0 {
			for _, tr := range msg.ToolResult {
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolUseID,
				})
			}
			continue
		}

		converted := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: msg.Content,
		}
		if msg.Role == RoleAssistant {
			converted.Role = openai.ChatMessageRoleAssistant
			for _, tu := range msg.ToolUse {
				converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
					ID:   tu.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tu.Name,
						Arguments: string(tu.Input),
					},
				})
			}
		}
		out = append(out, converted)
	}
	return out
}

func (p *OpenAIProvider) convertResponse(resp *openai.ChatCompletionResponse) *Response {
	choice := resp.Choices[0]

	response := &Response{
		Content: choice.Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		response.ToolCalls = append(response.ToolCalls, ToolUseBlock{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(args),
		})
	}

	switch choice.FinishReason {
	case openai.FinishReasonToolCalls:
		response.StopReason = StopReasonToolUse
	case openai.FinishReasonLength:
		response.StopReason = StopReasonMaxTokens
	default:
		response.StopReason = StopReasonEndTurn
	}
	if len(response.ToolCalls) > 0 {
		response.StopReason = StopReasonToolUse
	}

	return response
}
