// Package shredder splits extracted document text into bounded,
// overlapping chunks for retrieval indexing.
package shredder

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

// Chunk is one piece of shredded text. The first Overlap characters of
// Content repeat the tail of the previous chunk.
type Chunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Page    int    `json:"page,omitempty"`    // 0 when unknown
	Section string `json:"section,omitempty"` // section letter, e.g. "L"
	Size    int    `json:"size"`              // characters in Content
	Overlap int    `json:"overlap"`
}

// Fresh returns Content without the leading overlap.
func (c Chunk) Fresh() string {
	r := []rune(c.Content)
	if c.Overlap >= len(r) {
		return ""
	}
	return string(r[c.Overlap:])
}

type Config struct {
	ChunkSize int
	Overlap   int // kept below half the chunk size
}

func DefaultConfig() Config { return Config{ChunkSize: 1000, Overlap: 200} }

var reSectionHeader = regexp.MustCompile(`(?i)^\s*SECTION\s+([A-Z])\b`)

const elementSeparator = "\n\n"

type Shredder struct {
	size    int
	overlap int
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Shredder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.Overlap < 0 {
		logger.Warn("shredder overlap negative, using 0", "overlap", cfg.Overlap)
		cfg.Overlap = 0
	}
	if cfg.Overlap*2 >= cfg.ChunkSize {
		clamped := (cfg.ChunkSize - 1) / 2
		logger.Warn("shredder overlap clamped below half the chunk size",
			"chunk_size", cfg.ChunkSize, "overlap", cfg.Overlap, "clamped_to", clamped)
		cfg.Overlap = clamped
	}
	return &Shredder{size: cfg.ChunkSize, overlap: cfg.Overlap, logger: logger}
}

// SectionHeader returns the section letter when text opens with a
// "SECTION <letter>" header.
func SectionHeader(text string) (string, bool) {
	m := reSectionHeader.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// ShredText chunks raw text, preferring paragraph, then sentence, then
// word breaks past the middle of each window. No page or section
// metadata is attached.
func (s *Shredder) ShredText(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	chunks := s.split(runes, nil, nil, rawBreak)
	s.logger.Debug("shredded text", "chars", len(runes), "chunks", len(chunks))
	return chunks
}

type span struct {
	start   int
	page    int
	section string
}

// ShredElements chunks parsed elements joined by blank lines. A chunk
// never spans a page change or a new section header; the section tag of
// the latest header carries forward across pages.
func (s *Shredder) ShredElements(elements []document.Element) []Chunk {
	var (
		b       strings.Builder
		spans   []span
		hard    []int
		pos     int
		section string
	)
	for _, el := range elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		header, isHeader := SectionHeader(text)
		if len(spans) > 0 {
			b.WriteString(elementSeparator)
			pos += len([]rune(elementSeparator))
			prev := spans[len(spans)-1]
			if el.Page != prev.page || (isHeader && header != prev.section) {
				hard = append(hard, pos)
			}
		}
		if isHeader {
			section = header
		}
		spans = append(spans, span{start: pos, page: el.Page, section: section})
		b.WriteString(text)
		pos += len([]rune(text))
	}
	if len(spans) == 0 {
		return nil
	}

	meta := func(at int) (int, string) {
		i := sort.Search(len(spans), func(i int) bool { return spans[i].start > at }) - 1
		if i < 0 {
			i = 0
		}
		return spans[i].page, spans[i].section
	}
	chunks := s.split([]rune(b.String()), hard, meta, sentenceBreak)
	s.logger.Debug("shredded elements", "elements", len(spans), "chunks", len(chunks))
	return chunks
}

// split walks text segment by segment; hard boundaries end a chunk and
// start the next one without overlap.
func (s *Shredder) split(text []rune, hard []int, meta func(int) (int, string), brk func([]rune, int) int) []Chunk {
	var chunks []Chunk
	bounds := append(append([]int{}, hard...), len(text))

	segStart := 0
	for _, segEnd := range bounds {
		start, overlap := segStart, 0
		for start < segEnd {
			end := segEnd
			if start+s.size < segEnd {
				end = start + brk(text[start:start+s.size], s.size/2)
			}
			c := Chunk{
				Index:   len(chunks),
				Content: string(text[start:end]),
				Size:    end - start,
				Overlap: overlap,
			}
			if meta != nil {
				c.Page, c.Section = meta(start + overlap)
			}
			chunks = append(chunks, c)
			if end >= segEnd {
				break
			}
			next := end - s.overlap
			overlap = end - next
			start = next
		}
		segStart = segEnd
	}
	return chunks
}

// sentenceBreak returns the offset just past the last ". " beyond mid,
// or len(buf) for a hard split.
func sentenceBreak(buf []rune, mid int) int {
	if i := lastIndexAfter(buf, []rune(". "), mid); i >= 0 {
		return i + 2
	}
	return len(buf)
}

// rawBreak prefers a paragraph break, then a sentence break, then a word
// break, each only past mid.
func rawBreak(buf []rune, mid int) int {
	if i := lastIndexAfter(buf, []rune("\n\n"), mid); i >= 0 {
		return i + 2
	}
	if i := lastIndexAfter(buf, []rune(". "), mid); i >= 0 {
		return i + 2
	}
	if i := lastIndexAfter(buf, []rune(" "), mid); i >= 0 {
		return i + 1
	}
	return len(buf)
}

// lastIndexAfter finds the last occurrence of sep in buf that starts at or
// after mid.
func lastIndexAfter(buf, sep []rune, mid int) int {
	for i := len(buf) - len(sep); i >= mid; i-- {
		match := true
		for j := range sep {
			if buf[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
