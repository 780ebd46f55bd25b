package reader

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

var reParaSplit = regexp.MustCompile(`\n[ \t]*\n`)

// Elements returns the document as structural elements for element-aware
// chunking. DOCX keeps its paragraph structure; everything else is read
// through the strategy chain and split on form feeds (pages) and blank
// lines (paragraphs).
func (r *Reader) Elements(ctx context.Context, path string) ([]document.Element, error) {
	if constants.MapExtToFormat(filepath.Ext(path)) == constants.DOCX {
		if doc, err := parseDOCX(path); err == nil && len(doc.elements) > 0 {
			return doc.elements, nil
		}
	}
	res, err := r.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	paged := res.Pages > 0 || strings.Contains(res.Text, "\f")
	return ElementsFromText(res.Text, paged), nil
}

// ElementsFromText splits text into paragraphs. When paged is set, form
// feeds advance the page number starting at 1.
func ElementsFromText(text string, paged bool) []document.Element {
	var out []document.Element
	for i, page := range strings.Split(text, "\f") {
		pageNr := 0
		if paged {
			pageNr = i + 1
		}
		for _, para := range reParaSplit.Split(page, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			kind := document.ElementParagraph
			if isTitleLine(para) {
				kind = document.ElementTitle
			}
			out = append(out, document.Element{Text: para, Type: kind, Page: pageNr})
		}
	}
	return out
}

// isTitleLine flags short single-line all-caps paragraphs.
func isTitleLine(s string) bool {
	if strings.Contains(s, "\n") || len(s) > 120 {
		return false
	}
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}
