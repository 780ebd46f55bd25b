package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/extractor"
)

func TestQueue_RunsBatches(t *testing.T) {
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		return sowResult(f), nil
	}}
	p := NewProcessor(ext, Config{})

	hooked := make(chan *Result, 1)
	q := NewQueue(p, nil, WithWorkers(1), WithQueueSize(1), WithCompletionHook(func(_ context.Context, r *Result) {
		hooked <- r
	}))

	id, err := q.Enqueue(context.Background(), makeFiles(3), 2)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var res *Result
	select {
	case res = <-hooked:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}
	assert.Equal(t, id, res.BatchID)
	assert.Equal(t, 3, res.Successful)

	st, ok := q.Status(id)
	require.True(t, ok)
	assert.Equal(t, constants.JobStatusCompleted, st.State)
	require.NotNil(t, st.Result)

	_, ok = q.Status("unknown")
	assert.False(t, ok)

	q.Shutdown(context.Background())
	_, err = q.Enqueue(context.Background(), makeFiles(1), 1)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_RetainsBoundedHistory(t *testing.T) {
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		return sowResult(f), nil
	}}
	q := NewQueue(NewProcessor(ext, Config{}), nil, WithWorkers(1), WithRetained(2))

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := q.Enqueue(context.Background(), makeFiles(1), 1)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	q.Shutdown(context.Background())

	_, ok := q.Status(ids[0])
	assert.False(t, ok)
	st, ok := q.Status(ids[3])
	require.True(t, ok)
	assert.Equal(t, constants.JobStatusCompleted, st.State)
}
