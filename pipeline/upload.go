package pipeline

import (
	"context"
	"fmt"
)

// UploadBatches chunks items to size and issues one send per chunk,
// sequentially, waiting for each call before the next. The first send error
// aborts the remaining chunks; batches already sent stay sent. Returns the
// number of batches delivered.
func UploadBatches[T any](ctx context.Context, items []T, size int, send func(context.Context, []T) error) (int, error) {
	chunks, err := Chunk(items, size)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, c := range chunks {
		if err := send(ctx, c); err != nil {
			return sent, fmt.Errorf("batch %d/%d: %w", sent+1, len(chunks), err)
		}
		sent++
	}
	return sent, nil
}
