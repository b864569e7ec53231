package memory

import "context"

// Embedder converts text to a fixed-dimension vector for similarity search.
// The same model must back a persisted collection for its whole lifetime;
// vectors from different models are not geometrically comparable.
//
// Implementations: openai (text-embedding-3-small), onnx (local
// all-MiniLM-L6-v2, build tag "onnx"), mock (testing).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Judge issues a single judgment-capability call: a short, low-temperature
// completion whose text is expected to carry a JSON verdict. The Evaluator
// owns prompt construction and response parsing; a Judge only moves text.
//
// Implementations: judge/anthropic, judge/openai.
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// Filter restricts store reads to records whose metadata matches exactly.
// Zero-value fields are ignored.
type Filter struct {
	// User restricts results to one speaker.
	User string

	// Channel restricts results to one channel.
	Channel string

	// MinScore drops records below this judgment score. Only Scan honors
	// it; similarity queries rank by relevance instead.
	MinScore int
}

// Neighbor is one result of a similarity query.
type Neighbor struct {
	Memory *Memory

	// Distance is normalized to [0, 1]; lower means more similar.
	Distance float64
}

// Store is the persistent vector index behind the memory service. Inserts
// are independent: there is no transaction spanning records, and a failed
// insert persists nothing. Implementations must support concurrent inserts
// and queries without external locking.
type Store interface {
	// Insert embeds the memory's content and persists vector plus
	// metadata as one record.
	Insert(ctx context.Context, mem *Memory) error

	// Query returns up to topN nearest neighbors of text by vector
	// distance, optionally filtered by user/channel. An empty collection
	// yields an empty result, not an error.
	Query(ctx context.Context, text string, filter Filter, topN int) ([]Neighbor, error)

	// Scan is a non-similarity bulk read over the filter, used for
	// profile aggregation.
	Scan(ctx context.Context, filter Filter, limit int) ([]*Memory, error)

	// Close releases resources.
	Close() error
}
