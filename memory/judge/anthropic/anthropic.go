// Package anthropic implements the judgment capability on the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Options configure the judge. The defaults keep judgments short and
// near-deterministic, which is what the evaluator's parser expects.
type Options struct {
	// APIKey overrides ANTHROPIC_API_KEY.
	APIKey string

	// Model is the Claude model to use.
	Model string

	// Temperature is the sampling temperature. Default: 0.3.
	Temperature float64

	// MaxTokens caps the response size. Default: 200.
	MaxTokens int64
}

// Judge calls Claude with a fixed low-temperature, short-output
// configuration and returns the raw response text.
type Judge struct {
	client anthropic.Client
	opts   Options
}

// New creates an Anthropic-backed judge.
func New(optFns ...func(o *Options)) *Judge {
	opts := Options{
		Model:       "claude-sonnet-4-20250514",
		Temperature: 0.3,
		MaxTokens:   200,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &Judge{
		client: anthropic.NewClient(clientOpts...),
		opts:   opts,
	}
}

// Judge sends one judgment prompt and concatenates the text blocks of the
// response.
func (j *Judge) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(j.opts.Model),
		MaxTokens:   j.opts.MaxTokens,
		Temperature: anthropic.Float(j.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty judgment response")
	}
	return text, nil
}
