package progress

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

func ptr[T any](v T) *T { return &v }

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	_, ok := tr.Get("p1")
	assert.False(t, ok)

	tr.Start("p1", 4)
	tr.Update("p1", Update{Stage: ptr("shredding"), Message: ptr("reading section_l")})
	tr.Advance("p1", "section_l")
	tr.Advance("p1", "sow")

	p, ok := tr.Get("p1")
	require.True(t, ok)
	assert.Equal(t, constants.JobStatusRunning, p.Status)
	assert.Equal(t, "shredding", p.Stage)
	assert.Equal(t, 2, p.Processed)
	assert.Equal(t, "sow", p.Current)
	assert.InDelta(t, 50.0, p.Percent(), 0.001)
	assert.Nil(t, p.CompletedAt)

	tr.Complete("p1", "12 requirements")
	p, _ = tr.Get("p1")
	assert.Equal(t, constants.JobStatusCompleted, p.Status)
	assert.Equal(t, 4, p.Processed)
	assert.Equal(t, "12 requirements", p.Message)
	assert.NotNil(t, p.CompletedAt)
	assert.True(t, p.Status.Terminal())

	tr.Clear("p1")
	_, ok = tr.Get("p1")
	assert.False(t, ok)
}

func TestTrackerFailAndRestart(t *testing.T) {
	tr := NewTracker()
	tr.Start("p1", 2)
	tr.Fail("p1", errors.New("oracle down"))

	p, _ := tr.Get("p1")
	assert.Equal(t, constants.JobStatusFailed, p.Status)
	assert.Equal(t, "oracle down", p.Error)

	tr.Start("p1", 3)
	p, _ = tr.Get("p1")
	assert.Equal(t, constants.JobStatusRunning, p.Status)
	assert.Empty(t, p.Error)
	assert.Zero(t, p.Processed)
}

func TestTrackerIgnoresUnknownJobs(t *testing.T) {
	tr := NewTracker()
	tr.Update("nope", Update{Total: ptr(3)})
	tr.Advance("nope", "x")
	tr.Complete("nope", "")
	tr.Fail("nope", nil)
	_, ok := tr.Get("nope")
	assert.False(t, ok)
	assert.Zero(t, Progress{}.Percent())
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%d", i%3)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Start(id, 100)
			for j := 0; j < 50; j++ {
				tr.Advance(id, "x")
				_, _ = tr.Get(id)
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 3; i++ {
		_, ok := tr.Get(fmt.Sprintf("p%d", i))
		assert.True(t, ok)
	}
}
