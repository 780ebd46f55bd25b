package metrics

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestRing(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.items())
	assert.Equal(t, 3, r.len())

	var rev []int
	r.reverse(func(v int) bool { rev = append(rev, v); return true })
	assert.Equal(t, []int{5, 4, 3}, rev)

	r.reset()
	assert.Empty(t, r.items())
}

func TestRecord_Bounded(t *testing.T) {
	s := New(5)
	for i := 0; i < 12; i++ {
		s.RecordExtraction(fmt.Sprintf("s%d", i), true, time.Millisecond, false, nil)
	}
	h := s.snapshot()
	require.Len(t, h.Extractions, 5)
	assert.Equal(t, "s7", h.Extractions[0].Section)
	assert.Equal(t, "s11", h.Extractions[4].Section)
}

func TestGetSummary(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := New(100, WithClock(c.Now))

	// old record outside a one-hour window
	s.RecordExtraction("sow", false, 10*time.Second, true, errors.New("old"))
	c.now = c.now.Add(2 * time.Hour)

	s.RecordExtraction("sow", true, 100*time.Millisecond, true, nil)
	s.RecordExtraction("sow", false, 300*time.Millisecond, false, errors.New("quota"))
	s.RecordExtraction("section_l", true, 200*time.Millisecond, false, nil)
	s.RecordExtraction("section_l", true, 200*time.Millisecond, false, nil)
	s.RecordValidation("sow", true, nil)
	s.RecordValidation("section_l", false, errors.New("missing field"))
	s.RecordCacheHit("parsed")
	s.RecordCacheHit("parsed")
	s.RecordCacheMiss("parsed")
	s.RecordCacheMiss("extraction")

	sum := s.GetSummary(time.Hour)
	assert.Equal(t, 4, sum.Extractions)
	assert.InDelta(t, 75.0, sum.ExtractionSuccessRate, 0.001)
	assert.InDelta(t, 200.0, sum.AverageDurationMs, 0.001)
	assert.InDelta(t, 25.0, sum.OCRUsageRate, 0.001)
	assert.Equal(t, 2, sum.Validations)
	assert.InDelta(t, 50.0, sum.ValidationSuccessRate, 0.001)
	assert.Equal(t, 4, sum.CacheLookups)
	assert.InDelta(t, 50.0, sum.CacheHitRate, 0.001)
	assert.InDelta(t, 200.0/3, sum.CacheByPartition["parsed"], 0.001)
	assert.InDelta(t, 0.0, sum.CacheByPartition["extraction"], 0.001)

	sow := sum.Sections["sow"]
	assert.Equal(t, 2, sow.Extractions)
	assert.InDelta(t, 50.0, sow.SuccessRate, 0.001)
	assert.InDelta(t, 100.0, sow.ValidationSuccessRate, 0.001)

	all := s.GetSummary(0)
	assert.Equal(t, 5, all.Extractions)
}

func TestGetSummary_EmptyHasNoNaN(t *testing.T) {
	sum := New(10).GetSummary(time.Hour)
	assert.Zero(t, sum.ExtractionSuccessRate)
	assert.Zero(t, sum.CacheHitRate)
	_, err := json.Marshal(sum)
	require.NoError(t, err)
}

func TestGetRecentErrors(t *testing.T) {
	s := New(100)
	for i := 0; i < 6; i++ {
		var err error
		if i%2 == 0 {
			err = fmt.Errorf("err %d", i)
		}
		s.RecordExtraction("sow", err == nil, 0, false, err)
	}
	got := s.GetRecentErrors(2)
	require.Len(t, got, 2)
	assert.Equal(t, "err 4", got[0].Error)
	assert.Equal(t, "err 2", got[1].Error)
}

func TestReset(t *testing.T) {
	s := New(10)
	s.RecordExtraction("sow", true, 0, false, nil)
	s.RecordCacheHit("parsed")
	s.Reset()
	assert.Zero(t, s.GetSummary(0).Extractions)
	assert.Zero(t, s.GetSummary(0).CacheLookups)
}

func TestExport(t *testing.T) {
	s := New(10)
	s.RecordExtraction("sow", true, 1500*time.Millisecond, true, nil)
	s.RecordValidation("sow", false, errors.New("bad, \"quoted\""))
	s.RecordCacheMiss("tables")

	var js bytes.Buffer
	require.NoError(t, s.Export(&js, FormatJSON))
	var h history
	require.NoError(t, json.Unmarshal(js.Bytes(), &h))
	assert.Len(t, h.Extractions, 1)
	assert.Len(t, h.Validations, 1)
	assert.Len(t, h.Cache, 1)

	var cs bytes.Buffer
	require.NoError(t, s.Export(&cs, FormatCSV))
	recs, err := csv.NewReader(&cs).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, csvHeader, recs[0])
	assert.Equal(t, "1500", recs[1][4])
	assert.Equal(t, `bad, "quoted"`, recs[2][6])
	assert.Equal(t, "tables", recs[3][2])

	var xl bytes.Buffer
	require.NoError(t, s.Export(&xl, FormatXLSX))
	f, err := excelize.OpenReader(&xl)
	require.NoError(t, err)
	assert.Equal(t, []string{"Extractions", "Validations", "Cache"}, f.GetSheetList())

	assert.Error(t, s.Export(&bytes.Buffer{}, "yaml"))
}

func TestParseRange(t *testing.T) {
	d, err := ParseRange("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)
	d, err = ParseRange("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)
	d, err = ParseRange("all")
	require.NoError(t, err)
	assert.Zero(t, d)
	_, err = ParseRange("soon")
	assert.Error(t, err)
}

func TestConcurrentRecording(t *testing.T) {
	s := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordExtraction("sow", true, time.Millisecond, false, nil)
				s.RecordCacheHit("parsed")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, s.GetSummary(0).Extractions)
}
