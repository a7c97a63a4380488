// Package anthropic provides a core.Caller backed by the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/taskmesh/core"
)

// Options configure the Anthropic caller. The profile passed per call can
// override Model and Temperature.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Caller wraps the Anthropic Messages API behind the core.Caller interface.
type Caller struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic caller using the official client.
func New(optFns ...func(o *Options)) *Caller {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Caller{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic caller from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Caller {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Caller{client: client, opts: opts}
}

// Call implements core.Caller with a single non-streaming message exchange.
func (c *Caller) Call(ctx context.Context, prompt string, profile core.Profile) (string, error) {
	model := c.opts.Model
	if profile.Model != "" {
		model = anthropic.Model(profile.Model)
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(profile.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}
