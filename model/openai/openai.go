// Package openai provides a core.Caller backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/taskmesh/core"
)

// Options configure the OpenAI caller. The profile passed per call can
// override Model and Temperature.
type Options struct {
	Model               string
	MaxCompletionTokens int64
}

// Caller wraps the OpenAI Chat Completions API behind the core.Caller
// interface.
type Caller struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI caller using the official client (API key from env).
func New(optFns ...func(o *Options)) *Caller {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI caller from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Caller {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Caller{client: client, opts: opts}
}

// Call implements core.Caller with a single non-streaming completion.
func (c *Caller) Call(ctx context.Context, prompt string, profile core.Profile) (string, error) {
	model := c.opts.Model
	if profile.Model != "" {
		model = profile.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Temperature:         openai.Float(profile.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
