// Package classify assigns a SectionCategory to a document from its
// filename and, failing that, the head of its content.
package classify

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

// ContentWindow is how much leading content is inspected.
const ContentWindow = 1000

// Source records which rule decided a classification.
type Source string

const (
	SourceFilename Source = "filename"
	SourceDocType  Source = "doc_type"
	SourceContent  Source = "content"
	SourceDefault  Source = "default"
)

// Result is the detailed outcome of Classify.
type Result struct {
	Category constants.SectionCategory
	Source   Source
	// Candidates lists every section category the deciding text matched.
	// More than one means the call was ambiguous and priority order decided.
	Candidates []constants.SectionCategory
}

// Ambiguous reports whether several section tokens matched.
func (r Result) Ambiguous() bool { return len(r.Candidates) > 1 }

type rule struct {
	category constants.SectionCategory
	match    matcher
}

type matcher func(s string) bool

func anyOf(ms ...matcher) matcher {
	return func(s string) bool {
		for _, m := range ms {
			if m(s) {
				return true
			}
		}
		return false
	}
}

func allOf(ms ...matcher) matcher {
	return func(s string) bool {
		for _, m := range ms {
			if !m(s) {
				return false
			}
		}
		return true
	}
}

// word matches w as a whole word.
func word(w string) matcher {
	return regexp.MustCompile(`\b` + w + `\b`).MatchString
}

// sectionRules are evaluated in priority order; the first match wins.
var sectionRules = []rule{
	{constants.SectionL, anyOf(word(`section\s*l`))},
	{constants.SectionM, anyOf(word(`section\s*m`))},
	{constants.SOW, anyOf(word(`sow`), word(`pws`), word(`soo`), word(`statement\s+of\s+work`),
		word(`performance\s+work\s+statement`), word(`statement\s+of\s+objectives`))},
	{constants.SectionB, anyOf(word(`section\s*b`), word(`pricing`), word(`price\s+schedule`))},
	{constants.SectionH, anyOf(word(`section\s*h`))},
	{constants.CDRL, anyOf(word(`cdrls?`), word(`contract\s+data\s+requirements?\s+list`))},
	{constants.SectionK, anyOf(word(`section\s*k`), allOf(word(`reps?`), word(`certs?`)),
		allOf(word(`representations`), word(`certifications`)))},
	{constants.SectionI, anyOf(word(`section\s*i`))},
}

var docTypeRules = []rule{
	{constants.RFP, anyOf(word(`rfp`), word(`solicitation`))},
	{constants.RFQ, anyOf(word(`rfq`))},
	{constants.IFB, anyOf(word(`ifb`))},
	{constants.RFI, anyOf(word(`rfi`))},
}

var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ", "(", " ", ")", " ")

// normalize lowercases s and turns filename separators into spaces so
// "Section_L-Instructions.pdf" reads as "section l instructions pdf".
func normalize(s string) string {
	return separators.Replace(strings.ToLower(s))
}

// Classifier is stateless; the zero value is usable.
type Classifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger}
}

// Classify returns the category for a file. It never fails; when nothing
// matches the result is RFP.
func (c *Classifier) Classify(filename, content string) constants.SectionCategory {
	return c.ClassifyDetailed(filename, content).Category
}

// ClassifyDetailed applies, in order: section tokens in the filename,
// solicitation-type tokens in the filename, section tokens in the first
// ContentWindow characters of content, then the RFP default.
func (c *Classifier) ClassifyDetailed(filename, content string) Result {
	name := normalize(filename)

	if res, ok := matchSections(name); ok {
		res.Source = SourceFilename
		c.logAmbiguous(filename, res)
		return res
	}
	for _, r := range docTypeRules {
		if r.match(name) {
			return Result{Category: r.category, Source: SourceDocType}
		}
	}

	head := content
	if runes := []rune(head); len(runes) > ContentWindow {
		head = string(runes[:ContentWindow])
	}
	if res, ok := matchSections(normalize(head)); ok {
		res.Source = SourceContent
		c.logAmbiguous(filename, res)
		return res
	}

	return Result{Category: constants.RFP, Source: SourceDefault}
}

func matchSections(s string) (Result, bool) {
	var res Result
	for _, r := range sectionRules {
		if r.match(s) {
			res.Candidates = append(res.Candidates, r.category)
		}
	}
	if len(res.Candidates) == 0 {
		return res, false
	}
	res.Category = res.Candidates[0]
	return res, true
}

func (c *Classifier) logAmbiguous(filename string, res Result) {
	if !res.Ambiguous() || c == nil || c.logger == nil {
		return
	}
	candidates := make([]string, len(res.Candidates))
	for i, cat := range res.Candidates {
		candidates[i] = string(cat)
	}
	c.logger.Debug("classification ambiguous",
		"file", filename,
		"chosen", string(res.Category),
		"candidates", candidates,
		"source", string(res.Source),
	)
}
