// Package openai implements the embedding capability on the OpenAI
// Embeddings API. The model behind a persisted collection must never
// change, or its stored vectors stop being comparable to new queries.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the embedder.
type Options struct {
	// APIKey overrides OPENAI_API_KEY.
	APIKey string

	// BaseURL points at an OpenAI-compatible endpoint when non-empty.
	BaseURL string

	// Model is the embedding model. Default: text-embedding-3-small.
	Model string

	// Dimensions is the vector size of Model. Default: 1536.
	Dimensions int
}

// Embedder converts text to vectors through the OpenAI API.
type Embedder struct {
	client openai.Client
	opts   Options
}

// New creates an OpenAI-backed embedder.
func New(optFns ...func(o *Options)) *Embedder {
	opts := Options{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 1536,
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

	return &Embedder{
		client: openai.NewClient(clientOpts...),
		opts:   opts,
	}
}

// Embed converts a single text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.opts.Model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.opts.Dimensions
}
