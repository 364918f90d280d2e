package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/Dmetrikx/goDiscordPersona/internal/session"
)

// AIClient talks to an OpenAI-compatible chat completion endpoint (Groq).
type AIClient struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewAIClient creates a new AI client for the given endpoint
func NewAIClient(apiKey, baseURL, model string, logger *slog.Logger) (*AIClient, error) {
	if apiKey == "" {
		return nil, &MissingKeyError{Env: "GROQ_API_KEY"}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: RequestTimeout}

	return &AIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends the context to the model and returns the first choice
func (c *AIClient) Complete(ctx context.Context, messages []session.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	c.logger.InfoContext(ctx, "sending AI request",
		"provider", ProviderGroq,
		"model", c.model,
		"message_count", len(messages))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toChatMessages(messages),
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Groq API error", "error", err)
		return "", NewCompletionError(ProviderGroq, c.model, statusCode(err), "request failed", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.ErrorContext(ctx, "no response from Groq")
		return "", NewCompletionError(ProviderGroq, c.model, 0, "no choices returned", nil)
	}

	content := resp.Choices[0].Message.Content
	c.logger.InfoContext(ctx, "received Groq response",
		"response_length", len(content),
		"finish_reason", resp.Choices[0].FinishReason)

	return content, nil
}

func toChatMessages(turns []session.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, openai.ChatCompletionMessage{
			Role:    chatRole(t.Role),
			Content: t.Text,
		})
	}
	return out
}

func chatRole(r session.Role) string {
	switch r {
	case session.RoleSystem:
		return openai.ChatMessageRoleSystem
	case session.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// statusCode extracts the HTTP status from a go-openai error, if any.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

var _ Client = (*AIClient)(nil)
