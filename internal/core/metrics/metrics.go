// Package metrics keeps bounded histories of extraction, validation and
// cache outcomes and computes rolling aggregates over them.
package metrics

import (
	"log/slog"
	"sync"
	"time"
)

type ExtractionRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Section   string        `json:"section"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration_ns"`
	OCRUsed   bool          `json:"ocr_used"`
	Error     string        `json:"error,omitempty"`
}

type ValidationRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Section   string    `json:"section"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

type CacheRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Partition string    `json:"partition"`
	Hit       bool      `json:"hit"`
}

// Service is safe for concurrent use. Each history keeps at most
// maxRecords entries.
type Service struct {
	mu          sync.Mutex
	maxRecords  int
	extractions *ring[ExtractionRecord]
	validations *ring[ValidationRecord]
	cache       *ring[CacheRecord]
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(maxRecords int, opts ...Option) *Service {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	s := &Service{
		maxRecords:  maxRecords,
		extractions: newRing[ExtractionRecord](maxRecords),
		validations: newRing[ValidationRecord](maxRecords),
		cache:       newRing[CacheRecord](maxRecords),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Service) RecordExtraction(section string, success bool, duration time.Duration, ocrUsed bool, err error) {
	rec := ExtractionRecord{
		Timestamp: s.now(),
		Section:   section,
		Success:   success,
		Duration:  duration,
		OCRUsed:   ocrUsed,
		Error:     errText(err),
	}
	s.mu.Lock()
	s.extractions.push(rec)
	s.mu.Unlock()
}

func (s *Service) RecordValidation(section string, success bool, err error) {
	rec := ValidationRecord{Timestamp: s.now(), Section: section, Success: success, Error: errText(err)}
	s.mu.Lock()
	s.validations.push(rec)
	s.mu.Unlock()
}

func (s *Service) RecordCacheHit(partition string)  { s.recordCache(partition, true) }
func (s *Service) RecordCacheMiss(partition string) { s.recordCache(partition, false) }

func (s *Service) recordCache(partition string, hit bool) {
	rec := CacheRecord{Timestamp: s.now(), Partition: partition, Hit: hit}
	s.mu.Lock()
	s.cache.push(rec)
	s.mu.Unlock()
}

// Reset drops every record.
func (s *Service) Reset() {
	s.mu.Lock()
	s.extractions.reset()
	s.validations.reset()
	s.cache.reset()
	s.mu.Unlock()
	s.logger.Info("metrics reset")
}

// GetRecentErrors returns up to limit failed extractions, newest first.
func (s *Service) GetRecentErrors(limit int) []ExtractionRecord {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ExtractionRecord, 0, limit)
	s.extractions.reverse(func(r ExtractionRecord) bool {
		if !r.Success {
			out = append(out, r)
		}
		return len(out) < limit
	})
	return out
}

type history struct {
	Extractions []ExtractionRecord `json:"extractions"`
	Validations []ValidationRecord `json:"validations"`
	Cache       []CacheRecord      `json:"cache"`
}

func (s *Service) snapshot() history {
	s.mu.Lock()
	defer s.mu.Unlock()
	return history{
		Extractions: s.extractions.items(),
		Validations: s.validations.items(),
		Cache:       s.cache.items(),
	}
}
