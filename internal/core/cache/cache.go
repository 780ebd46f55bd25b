package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

// Partition names one independent LRU namespace.
type Partition string

const (
	Parsed     Partition = "parsed"     // file key -> extracted text
	Scanned    Partition = "scanned"    // file key -> scanned-PDF flag
	Extraction Partition = "extraction" // file key + section -> structured payload
	Tables     Partition = "tables"     // file key -> []document.TableData
)

// Partitions lists every partition in a stable order.
var Partitions = []Partition{Parsed, Scanned, Extraction, Tables}

// persisted partitions write through to the badger tier when one is configured.
var persisted = map[Partition]bool{Parsed: true, Scanned: true, Tables: true}

// Observer receives hit/miss notifications, e.g. the metrics service.
type Observer interface {
	RecordCacheHit(partition string)
	RecordCacheMiss(partition string)
}

type Config struct {
	MaxEntries        int           // per partition, default 1000
	DefaultTTL        time.Duration // default 24h
	ScannedMultiplier int           // scanned TTL = DefaultTTL * multiplier, default 7
}

// Stats is a point-in-time view of one partition.
type Stats struct {
	Partition   string  `json:"partition"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	TTLSeconds  float64 `json:"ttl_seconds"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	HitRate     float64 `json:"hit_rate"`
}

type entry struct {
	value   any
	created time.Time
	expires time.Time // zero: never expires
	hits    uint64
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// EntryInfo describes a cached entry without touching its recency.
type EntryInfo struct {
	CreatedAt time.Time
	ExpiresAt time.Time // zero when the entry never expires
	Hits      uint64
}

type partition struct {
	name    Partition
	maxSize int
	ttl     time.Duration

	mu          sync.Mutex
	lru         *simplelru.LRU[string, *entry]
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// Store is a set of TTL-bounded LRU partitions. Safe for concurrent use;
// each partition has its own lock.
type Store struct {
	partitions map[Partition]*partition
	now        func() time.Time
	observer   Observer
	persist    *Persistent
	logger     *slog.Logger
}

type Option func(*Store)

// WithClock overrides time.Now for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithPersistence adds a badger tier behind the parsed, scanned and tables partitions.
func WithPersistence(p *Persistent) Option {
	return func(s *Store) { s.persist = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(cfg Config, opts ...Option) (*Store, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}
	if cfg.ScannedMultiplier <= 0 {
		cfg.ScannedMultiplier = 7
	}

	s := &Store{
		partitions: make(map[Partition]*partition, len(Partitions)),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	for _, name := range Partitions {
		l, err := simplelru.NewLRU[string, *entry](cfg.MaxEntries, nil)
		if err != nil {
			return nil, fmt.Errorf("cache partition %s: %w", name, err)
		}
		ttl := cfg.DefaultTTL
		if name == Scanned {
			ttl = cfg.DefaultTTL * time.Duration(cfg.ScannedMultiplier)
		}
		s.partitions[name] = &partition{name: name, maxSize: cfg.MaxEntries, ttl: ttl, lru: l}
	}
	return s, nil
}

// TTL returns the entry lifetime for p.
func (s *Store) TTL(p Partition) time.Duration {
	if part, ok := s.partitions[p]; ok {
		return part.ttl
	}
	return 0
}

// Get returns the live value for key. Expired entries are dropped and count as misses.
func (s *Store) Get(p Partition, key string) (any, bool) {
	v, ok := s.get(p, key)
	s.count(p, ok)
	return v, ok
}

func (s *Store) get(p Partition, key string) (any, bool) {
	part, ok := s.partitions[p]
	if !ok {
		return nil, false
	}

	part.mu.Lock()
	defer part.mu.Unlock()

	e, ok := part.lru.Get(key)
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		part.lru.Remove(key)
		part.expirations++
		return nil, false
	}
	e.hits++
	return e.value, true
}

// Inspect reports the entry under key. Expired entries are not reported.
func (s *Store) Inspect(p Partition, key string) (EntryInfo, bool) {
	part, ok := s.partitions[p]
	if !ok {
		return EntryInfo{}, false
	}
	part.mu.Lock()
	defer part.mu.Unlock()

	e, ok := part.lru.Peek(key)
	if !ok || e.expired(s.now()) {
		return EntryInfo{}, false
	}
	return EntryInfo{CreatedAt: e.created, ExpiresAt: e.expires, Hits: e.hits}, true
}

// Set stores v under key with the partition TTL, evicting the least
// recently used entry when full.
func (s *Store) Set(p Partition, key string, v any) {
	s.SetWithTTL(p, key, v, s.TTL(p))
}

// SetWithTTL stores v under key with its own lifetime. A ttl of zero or
// less never expires; the entry leaves only by eviction or deletion.
func (s *Store) SetWithTTL(p Partition, key string, v any, ttl time.Duration) {
	part, ok := s.partitions[p]
	if !ok {
		return
	}

	now := s.now()
	e := &entry{value: v, created: now}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	part.mu.Lock()
	evicted := part.lru.Add(key, e)
	if evicted {
		part.evictions++
	}
	part.mu.Unlock()

	if evicted {
		s.logger.Debug("cache evicted entry", "partition", string(p))
	}
}

// Delete drops key from memory and from the persistent tier.
func (s *Store) Delete(p Partition, key string) {
	if part, ok := s.partitions[p]; ok {
		part.mu.Lock()
		part.lru.Remove(key)
		part.mu.Unlock()
	}
	if s.persist != nil && persisted[p] {
		if err := s.persist.Delete(string(p), key); err != nil {
			s.logger.Warn("cache persistent delete failed", "partition", string(p), "error", err)
		}
	}
}

// Clear empties the named partitions, or all of them when none are given.
// Counters are kept.
func (s *Store) Clear(ps ...Partition) {
	if len(ps) == 0 {
		ps = Partitions
	}
	for _, p := range ps {
		part, ok := s.partitions[p]
		if !ok {
			continue
		}
		part.mu.Lock()
		part.lru.Purge()
		part.mu.Unlock()

		if s.persist != nil && persisted[p] {
			if err := s.persist.DropPartition(string(p)); err != nil {
				s.logger.Warn("cache persistent clear failed", "partition", string(p), "error", err)
			}
		}
	}
	s.logger.Info("cache cleared", "partitions", len(ps))
}

// Stats reports every partition.
func (s *Store) Stats() map[Partition]Stats {
	out := make(map[Partition]Stats, len(s.partitions))
	for name, part := range s.partitions {
		part.mu.Lock()
		st := Stats{
			Partition:   string(name),
			Size:        part.lru.Len(),
			MaxSize:     part.maxSize,
			TTLSeconds:  part.ttl.Seconds(),
			Hits:        part.hits,
			Misses:      part.misses,
			Evictions:   part.evictions,
			Expirations: part.expirations,
		}
		part.mu.Unlock()
		if total := st.Hits + st.Misses; total > 0 {
			st.HitRate = float64(st.Hits) / float64(total)
		}
		out[name] = st
	}
	return out
}

// count records one lookup outcome on the partition and the observer.
func (s *Store) count(p Partition, hit bool) {
	if part, ok := s.partitions[p]; ok {
		part.mu.Lock()
		if hit {
			part.hits++
		} else {
			part.misses++
		}
		part.mu.Unlock()
	}
	if s.observer == nil {
		return
	}
	if hit {
		s.observer.RecordCacheHit(string(p))
	} else {
		s.observer.RecordCacheMiss(string(p))
	}
}

// Load is the typed read path. A value of the wrong type, or persisted
// bytes that no longer decode into T, is treated as corruption: logged,
// removed, and reported as a miss. Memory misses on persisted partitions
// fall through to the badger tier and repopulate memory.
func Load[T any](s *Store, p Partition, key string) (T, bool) {
	var zero T

	if v, ok := s.get(p, key); ok {
		if t, ok := v.(T); ok {
			s.count(p, true)
			return t, true
		}
		s.corrupt(p, key, fmt.Errorf("unexpected type %T", v))
		s.count(p, false)
		return zero, false
	}

	if s.persist == nil || !persisted[p] {
		s.count(p, false)
		return zero, false
	}

	raw, ok, err := s.persist.Get(string(p), key)
	if err != nil {
		s.logger.Warn("cache persistent read failed", "partition", string(p), "error", err)
	}
	if !ok {
		s.count(p, false)
		return zero, false
	}

	var t T
	if err := json.Unmarshal(raw, &t); err != nil {
		s.corrupt(p, key, err)
		s.count(p, false)
		return zero, false
	}
	s.Set(p, key, t)
	s.count(p, true)
	return t, true
}

// Save is the typed write path; it writes through to the persistent tier.
func Save[T any](s *Store, p Partition, key string, v T) {
	s.Set(p, key, v)
	if s.persist == nil || !persisted[p] {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache encode failed", "partition", string(p), "error", err)
		return
	}
	if err := s.persist.Set(string(p), key, raw, s.TTL(p)); err != nil {
		s.logger.Warn("cache persistent write failed", "partition", string(p), "error", err)
	}
}

func (s *Store) corrupt(p Partition, key string, cause error) {
	err := common.CacheCorruption(string(p)+"/"+key, cause)
	s.logger.Warn("cache entry corrupt, dropping", "partition", string(p), "error", err)
	s.Delete(p, key)
}
