// Package llm wraps the OpenAI-compatible chat completions API with an
// ordered model fallback chain. Calls never fail hard: when every model is
// exhausted the client returns a sentinel reply string so the chat pipeline
// can keep serving.
package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Sentinel replies returned in place of an assistant answer when no
// completion could be produced.
const (
	ReplyKeyMissing     = "[OpenAI key missing]"
	ReplyNoModels       = "[No models configured. Please set OPENAI_MODEL in .env file.]"
	ReplyAllUnavailable = "[All configured models unavailable in this project. Please set OPENAI_MODEL to one you can use.]"
)

const requestTimeout = 60 * time.Second

// Message is one turn of conversation history.
type Message struct {
	Role    string
	Content string
}

// Chat produces an assistant reply given a system prompt and history.
// Implementations must return a non-empty string on every call.
type Chat interface {
	Chat(ctx context.Context, systemText string, messages []Message) string
}

// Client implements Chat over an OpenAI-compatible endpoint.
type Client struct {
	api    *openai.Client
	models []string
	hasKey bool
	log    zerolog.Logger
}

// New builds a Client. baseURL may be empty for the public OpenAI endpoint;
// models is the ordered fallback chain (preferred first).
func New(apiKey, baseURL string, models []string, log zerolog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		models: models,
		hasKey: apiKey != "" && apiKey != "INSERT API KEY",
		log:    log.With().Str("component", "llm").Logger(),
	}
}

// Chat tries each model in order and returns the first successful reply.
// A model failure is logged and the next model is tried; total failure
// yields a sentinel string, never an error.
func (c *Client) Chat(ctx context.Context, systemText string, messages []Message) string {
	if !c.hasKey {
		c.log.Error().Msg("API key missing")
		return ReplyKeyMissing
	}
	if len(c.models) == 0 {
		c.log.Error().Msg("no models configured")
		return ReplyNoModels
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemText,
	})
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	for _, model := range c.models {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    model,
			Messages: msgs,
		})
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Str("model", model).Msg("completion failed, trying next model")
			continue
		}
		if len(resp.Choices) == 0 {
			c.log.Warn().Str("model", model).Msg("completion returned no choices")
			continue
		}
		return resp.Choices[0].Message.Content
	}

	c.log.Error().Strs("models", c.models).Msg("all models failed")
	return ReplyAllUnavailable
}
