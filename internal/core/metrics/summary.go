package metrics

import (
	"fmt"
	"strings"
	"time"
)

// SectionSummary aggregates one section's records.
type SectionSummary struct {
	Extractions           int     `json:"extractions"`
	Successes             int     `json:"successes"`
	SuccessRate           float64 `json:"success_rate"`
	AverageDurationMs     float64 `json:"avg_duration_ms"`
	Validations           int     `json:"validations"`
	ValidationSuccessRate float64 `json:"validation_success_rate"`
}

// Summary holds aggregates over records newer than Since. Rates are percentages.
type Summary struct {
	Since                 time.Time                 `json:"since"`
	Extractions           int                       `json:"extractions"`
	ExtractionSuccessRate float64                   `json:"extraction_success_rate"`
	AverageDurationMs     float64                   `json:"avg_duration_ms"`
	OCRUsageRate          float64                   `json:"ocr_usage_rate"`
	Validations           int                       `json:"validations"`
	ValidationSuccessRate float64                   `json:"validation_success_rate"`
	CacheLookups          int                       `json:"cache_lookups"`
	CacheHitRate          float64                   `json:"cache_hit_rate"`
	CacheByPartition      map[string]float64        `json:"cache_hit_rate_by_partition"`
	Sections              map[string]SectionSummary `json:"sections"`
}

func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// ParseRange accepts Go durations plus a day suffix ("7d"). "all" and ""
// mean no cutoff and return 0.
func ParseRange(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "all":
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		var n int
		if _, err := fmt.Sscanf(days, "%d", &n); err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid range %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid range %q", s)
	}
	return d, nil
}

// GetSummary aggregates records newer than now-window; a zero window
// covers the whole history.
func (s *Service) GetSummary(window time.Duration) Summary {
	var since time.Time
	if window > 0 {
		since = s.now().Add(-window)
	}
	h := s.snapshot()

	out := Summary{
		Since:            since,
		CacheByPartition: map[string]float64{},
		Sections:         map[string]SectionSummary{},
	}

	type acc struct {
		n, ok, vn, vok int
		dur            time.Duration
	}
	per := map[string]*acc{}
	get := func(sec string) *acc {
		a, found := per[sec]
		if !found {
			a = &acc{}
			per[sec] = a
		}
		return a
	}

	var ok, ocr int
	var total time.Duration
	for _, r := range h.Extractions {
		if r.Timestamp.Before(since) {
			continue
		}
		out.Extractions++
		total += r.Duration
		a := get(r.Section)
		a.n++
		a.dur += r.Duration
		if r.Success {
			ok++
			a.ok++
		}
		if r.OCRUsed {
			ocr++
		}
	}
	out.ExtractionSuccessRate = pct(ok, out.Extractions)
	out.OCRUsageRate = pct(ocr, out.Extractions)
	if out.Extractions > 0 {
		out.AverageDurationMs = float64(total.Milliseconds()) / float64(out.Extractions)
	}

	var vok int
	for _, r := range h.Validations {
		if r.Timestamp.Before(since) {
			continue
		}
		out.Validations++
		a := get(r.Section)
		a.vn++
		if r.Success {
			vok++
			a.vok++
		}
	}
	out.ValidationSuccessRate = pct(vok, out.Validations)

	var hits int
	parts := map[string][2]int{}
	for _, r := range h.Cache {
		if r.Timestamp.Before(since) {
			continue
		}
		out.CacheLookups++
		c := parts[r.Partition]
		c[1]++
		if r.Hit {
			hits++
			c[0]++
		}
		parts[r.Partition] = c
	}
	out.CacheHitRate = pct(hits, out.CacheLookups)
	for p, c := range parts {
		out.CacheByPartition[p] = pct(c[0], c[1])
	}

	for sec, a := range per {
		ss := SectionSummary{
			Extractions:           a.n,
			Successes:             a.ok,
			SuccessRate:           pct(a.ok, a.n),
			Validations:           a.vn,
			ValidationSuccessRate: pct(a.vok, a.vn),
		}
		if a.n > 0 {
			ss.AverageDurationMs = float64(a.dur.Milliseconds()) / float64(a.n)
		}
		out.Sections[sec] = ss
	}
	return out
}
