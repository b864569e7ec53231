// Package openai implements the judgment capability on the OpenAI Chat
// Completions API, including OpenAI-compatible endpoints selected through
// a custom base URL.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the judge.
type Options struct {
	// APIKey overrides OPENAI_API_KEY.
	APIKey string

	// BaseURL points at an OpenAI-compatible endpoint when non-empty.
	BaseURL string

	// Model is the chat model to use. Default: gpt-4o-mini.
	Model string

	// Temperature is the sampling temperature. Default: 0.3.
	Temperature float64

	// MaxTokens caps the response size. Default: 200.
	MaxTokens int64
}

// Judge calls a chat model with a fixed low-temperature, short-output
// configuration and returns the raw response text.
type Judge struct {
	client openai.Client
	opts   Options
}

// New creates an OpenAI-backed judge.
func New(optFns ...func(o *Options)) *Judge {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
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
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Judge{
		client: openai.NewClient(clientOpts...),
		opts:   opts,
	}
}

// Judge sends one judgment prompt and returns the first choice's content.
func (j *Judge) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: j.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(j.opts.Temperature),
		MaxCompletionTokens: openai.Int(j.opts.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty judgment response")
	}
	return resp.Choices[0].Message.Content, nil
}
