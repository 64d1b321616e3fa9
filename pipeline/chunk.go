// Package pipeline implements the remnant-to-marketplace mapping and batching
// pipeline: splitting update lists into API-sized batches, normalizing feed
// prices, joining remnant rows against a marketplace's known offer ids, and
// driving sequential chunked uploads.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrChunkSize reports a non-positive chunk size.
var ErrChunkSize = errors.New("chunk size must be positive")

// Chunk splits items into consecutive sub-slices of length n; the last chunk
// holds the remainder. Chunks alias the input slice. Empty input yields no
// chunks.
func Chunk[T any](items []T, n int) ([][]T, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrChunkSize, n)
	}
	if len(items) == 0 {
		return nil, nil
	}
	chunks := make([][]T, 0, (len(items)+n-1)/n)
	for i := 0; i < len(items); i += n {
		j := i + n
		if j > len(items) {
			j = len(items)
		}
		chunks = append(chunks, items[i:j])
	}
	return chunks, nil
}
