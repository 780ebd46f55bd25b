package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/extractor"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
)

type stubExtractor struct {
	fn       func(ctx context.Context, f document.File) (extractor.FileResult, error)
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *stubExtractor) ExtractFile(ctx context.Context, f document.File) (extractor.FileResult, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[f.Filename]++
	s.mu.Unlock()
	return s.fn(ctx, f)
}

func (s *stubExtractor) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func sowResult(f document.File) extractor.FileResult {
	return extractor.FileResult{
		File:      f,
		Category:  constants.SOW,
		Section:   constants.KeySOW,
		Payload:   llm.SOWPayload{Scope: f.Filename},
		Validated: true,
	}
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func makeFiles(n int) []document.File {
	out := make([]document.File, n)
	for i := range out {
		out[i] = document.File{Path: fmt.Sprintf("/in/f%02d.pdf", i), Filename: fmt.Sprintf("f%02d.pdf", i)}
	}
	return out
}

func TestProcessBatch_PartialFailure(t *testing.T) {
	bad := map[string]bool{"f02.pdf": true, "f05.pdf": true, "f09.pdf": true}
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		if bad[f.Filename] {
			return extractor.FileResult{}, common.OracleFailure("quota", errors.New("429"))
		}
		return sowResult(f), nil
	}}
	rec := &sleepRecorder{}
	p := NewProcessor(ext, Config{MaxConcurrency: 3, MaxRetries: 3, RetryDelay: time.Second, RateLimitDelay: 10 * time.Millisecond},
		WithSleep(rec.sleep))

	res, err := p.ProcessBatch(context.Background(), makeFiles(10), 0)
	require.NoError(t, err)

	assert.Equal(t, 10, res.TotalFiles)
	assert.Equal(t, 7, res.Successful)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, res.TotalFiles, res.Successful+res.Failed)
	assert.InDelta(t, 70.0, res.SuccessRate, 0.001)
	assert.NotEmpty(t, res.BatchID)

	var failed []string
	for _, e := range res.Errors {
		failed = append(failed, e.File)
		assert.Equal(t, common.KindBatchItemExhausted, e.Kind)
		assert.Equal(t, common.KindOracleFailure, e.Cause)
		assert.Equal(t, "ORACLE_FAILURE: quota: oracle failure: 429", e.Error)
		assert.NotContains(t, e.Error, "\n")
		assert.Equal(t, 4, e.Attempts, "first attempt plus three retries")
		assert.Equal(t, 4, ext.Calls(e.File))
	}
	assert.Equal(t, []string{"f02.pdf", "f05.pdf", "f09.pdf"}, failed)
	assert.Equal(t, 1, ext.Calls("f00.pdf"))

	// sections merge in input order: f00 wins sow
	p0, ok := res.Sections.Payload(constants.KeySOW)
	require.True(t, ok)
	assert.Equal(t, "f00.pdf", p0.(llm.SOWPayload).Scope)
	assert.Len(t, res.Sections.Sources, 7)

	// 10 rate-limit sleeps for first attempts, 3 more per failing file plus 3 backoffs each
	var backoffs []time.Duration
	for _, d := range rec.delays {
		if d >= time.Second {
			backoffs = append(backoffs, d)
		}
	}
	assert.Len(t, rec.delays, 10+3*3+3*3)
	assert.ElementsMatch(t, []time.Duration{
		time.Second, 2 * time.Second, 3 * time.Second,
		time.Second, 2 * time.Second, 3 * time.Second,
		time.Second, 2 * time.Second, 3 * time.Second,
	}, backoffs)

	_, live := p.GetBatchStatus(res.BatchID)
	assert.False(t, live)
	assert.Empty(t, p.ActiveBatches())
}

func TestProcessBatch_RecoversOnRetry(t *testing.T) {
	var attempts atomic.Int32
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		if attempts.Add(1) < 3 {
			return extractor.FileResult{}, errors.New("flaky")
		}
		return sowResult(f), nil
	}}
	p := NewProcessor(ext, Config{MaxRetries: 2}, WithSleep((&sleepRecorder{}).sleep))

	res, err := p.ProcessBatch(context.Background(), makeFiles(1), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Successful)
	assert.Empty(t, res.Errors)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestProcessBatch_ZeroRetriesMeansOneAttempt(t *testing.T) {
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		return extractor.FileResult{}, errors.New("boom " + f.Filename)
	}}
	p := NewProcessor(ext, Config{MaxRetries: 0}, WithSleep((&sleepRecorder{}).sleep))

	res, err := p.ProcessBatch(context.Background(), makeFiles(2), 2)
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.Equal(t, 1, e.Attempts)
		assert.Equal(t, 1, ext.Calls(e.File))
		assert.Equal(t, "boom "+e.File, e.Error)
		assert.Equal(t, common.KindUnknown, e.Cause)
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	p := NewProcessor(&stubExtractor{}, Config{})
	res, err := p.ProcessBatch(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Zero(t, res.TotalFiles)
	assert.Zero(t, res.SuccessRate)
	assert.NotNil(t, res.Errors)
}

func TestProcessBatch_BoundsConcurrency(t *testing.T) {
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		time.Sleep(5 * time.Millisecond)
		return sowResult(f), nil
	}}
	p := NewProcessor(ext, Config{MaxConcurrency: 5})
	res, err := p.ProcessBatch(context.Background(), makeFiles(20), 2)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Successful)
	assert.LessOrEqual(t, ext.maxSeen.Load(), int32(2))
}

func TestProcessBatch_ItemTimeout(t *testing.T) {
	ext := &stubExtractor{fn: func(ctx context.Context, f document.File) (extractor.FileResult, error) {
		if f.Filename == "f00.pdf" {
			<-ctx.Done()
			return extractor.FileResult{}, common.OracleFailure("timeout", ctx.Err())
		}
		return sowResult(f), nil
	}}
	p := NewProcessor(ext, Config{MaxRetries: 1, ItemTimeout: 20 * time.Millisecond})
	res, err := p.ProcessBatch(context.Background(), makeFiles(3), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Successful)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "f00.pdf", res.Errors[0].File)
	assert.Equal(t, 2, res.Errors[0].Attempts)
}

func TestProcessWithProgress(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	ext := &stubExtractor{fn: func(_ context.Context, f document.File) (extractor.FileResult, error) {
		started <- struct{}{}
		<-release
		if f.Filename == "f03.pdf" {
			return extractor.FileResult{}, errors.New("bad")
		}
		return sowResult(f), nil
	}}
	p := NewProcessor(ext, Config{ProgressInterval: 5 * time.Millisecond})

	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	done := make(chan *Result)
	go func() {
		res, err := p.ProcessWithProgress(context.Background(), makeFiles(4), 4, func(s Snapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		})
		assert.NoError(t, err)
		done <- res
	}()

	for i := 0; i < 4; i++ {
		<-started
	}
	ids := p.ActiveBatches()
	require.Len(t, ids, 1)
	st, ok := p.GetBatchStatus(ids[0])
	require.True(t, ok)
	assert.Equal(t, 4, st.TotalFiles)
	assert.Zero(t, st.Processed)
	assert.Zero(t, st.EstimatedRemaining)

	time.Sleep(20 * time.Millisecond)
	close(release)
	res := <-done

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	for _, s := range snaps {
		assert.Equal(t, s.Processed, s.Successful+s.Failed)
	}
	last := snaps[len(snaps)-1]
	assert.Equal(t, 4, last.Processed)
	assert.InDelta(t, 100.0, last.PercentComplete, 0.001)
	assert.Equal(t, res.BatchID, last.BatchID)
	assert.Equal(t, 1, res.Failed)
}

func TestSnapshotEstimates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pr := newProgress("b", 10, start)
	pr.successful.Add(3)
	pr.failed.Add(1)
	pr.setCurrent("x.pdf")

	s := pr.snapshot(start.Add(8 * time.Second))
	assert.Equal(t, 4, s.Processed)
	assert.InDelta(t, 40.0, s.PercentComplete, 0.001)
	assert.InDelta(t, 8.0, s.ElapsedSeconds, 0.001)
	assert.InDelta(t, 12.0, s.EstimatedRemaining, 0.001)
	assert.Equal(t, "x.pdf", s.Current)
}
