package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBatchesSplitsSequentially(t *testing.T) {
	items := make([]int, 2500)
	var sizes []int
	sent, err := UploadBatches(context.Background(), items, 1000,
		func(_ context.Context, batch []int) error {
			sizes = append(sizes, len(batch))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, []int{1000, 1000, 500}, sizes)
}

func TestUploadBatchesAbortsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	sent, err := UploadBatches(context.Background(), make([]int, 30), 10,
		func(_ context.Context, _ []int) error {
			calls++
			if calls == 2 {
				return boom
			}
			return nil
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls, "no chunk is sent after a failure")
	assert.Equal(t, 1, sent)
}

func TestUploadBatchesEmptyInput(t *testing.T) {
	sent, err := UploadBatches(context.Background(), []int(nil), 10,
		func(_ context.Context, _ []int) error {
			t.Fatal("send must not be called for empty input")
			return nil
		})
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestUploadBatchesInvalidSize(t *testing.T) {
	_, err := UploadBatches(context.Background(), []int{1}, 0,
		func(_ context.Context, _ []int) error { return nil })
	assert.ErrorIs(t, err, ErrChunkSize)
}
