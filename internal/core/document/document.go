// Package document holds the value types passed between the reader,
// cache, extractor and shredder.
package document

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

// File is one input document handed to the pipeline.
type File struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// NewFile builds a File whose Filename is the base name of path.
func NewFile(path string) File {
	return File{Path: path, Filename: filepath.Base(path)}
}

// Format is the manifest file type derived from the extension.
func (f File) Format() string {
	if ft := constants.MapExtToFormat(filepath.Ext(f.Filename)); ft != "" {
		return ft
	}
	return strings.ToUpper(constants.NormalizeExt(filepath.Ext(f.Filename)))
}

// TableData is a table lifted out of a document.
type TableData struct {
	Source  string     `json:"source"`
	Name    string     `json:"name,omitempty"` // sheet name or caption
	Page    int        `json:"page,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Markdown renders the table as a pipe table.
func (t TableData) Markdown() string {
	width := len(t.Headers)
	for _, r := range t.Rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	if t.Name != "" {
		b.WriteString("**")
		b.WriteString(t.Name)
		b.WriteString("**\n\n")
	}
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(strings.TrimSpace(cells[i]), "|", `\|`)
				cell = strings.ReplaceAll(cell, "\n", " ")
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	writeRow(t.Headers)
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range t.Rows {
		writeRow(r)
	}
	return b.String()
}

// Element is a structural unit (title, paragraph, table, list item) with its page.
type Element struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Page int    `json:"page,omitempty"` // 0 = unknown
}

// Element types produced by the readers.
const (
	ElementTitle     = "title"
	ElementParagraph = "paragraph"
	ElementTable     = "table"
	ElementListItem  = "list_item"
)
