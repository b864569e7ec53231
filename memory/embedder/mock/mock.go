// Package mock provides a deterministic embedder for tests: no model
// files, no network.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder hashes word tokens into a fixed-size bag-of-words vector.
// Texts sharing words land near each other, texts with disjoint words are
// roughly orthogonal; crude, but enough semantic structure for tests.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 384 dimensions, matching the size of
// the local all-MiniLM-L6-v2 model.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed maps each lowercased word token onto a dimension by hash and
// normalizes the counts to a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) == 0 {
		// Keep empty input representable instead of erroring.
		vec[0] = 1
		return vec, nil
	}

	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
