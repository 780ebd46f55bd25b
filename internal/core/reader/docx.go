package reader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

func (r *Reader) readDOCX(_ context.Context, path, _ string) (Result, error) {
	doc, err := parseDOCX(path)
	if err != nil {
		return Result{}, err
	}
	parts := make([]string, 0, len(doc.elements))
	for _, el := range doc.elements {
		parts = append(parts, el.Text)
	}
	return Result{Text: strings.Join(parts, "\n\n"), Method: MethodDOCX}, nil
}

type docxContent struct {
	elements []document.Element
	tables   []document.TableData
}

func openDocumentXML(path string) (io.ReadCloser, func(), error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			_ = zr.Close()
			return nil, nil, fmt.Errorf("open document.xml: %w", err)
		}
		return rc, func() { _ = rc.Close(); _ = zr.Close() }, nil
	}
	_ = zr.Close()
	return nil, nil, fmt.Errorf("word/document.xml not found in archive")
}

// parseDOCX walks word/document.xml once, collecting paragraphs (headings
// flagged as titles) and tables. Paragraphs inside a table become cells.
func parseDOCX(path string) (docxContent, error) {
	rc, closeFn, err := openDocumentXML(path)
	if err != nil {
		return docxContent{}, err
	}
	defer closeFn()

	var (
		out        docxContent
		text       strings.Builder
		inPara     bool
		style      string
		tableDepth int
		table      *document.TableData
		row        []string
		cell       strings.Builder
	)

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("docx xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = &document.TableData{Source: path}
				}
			case "tr":
				row = nil
			case "tc":
				cell.Reset()
			case "p":
				inPara = true
				text.Reset()
				style = ""
			case "pStyle":
				for _, a := range t.Attr {
					if a.Name.Local == "val" {
						style = a.Value
					}
				}
			case "tab":
				text.WriteByte(' ')
			}
		case xml.CharData:
			if inPara {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				inPara = false
				p := strings.TrimSpace(text.String())
				if p == "" {
					continue
				}
				if tableDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(p)
					continue
				}
				kind := document.ElementParagraph
				if isHeadingStyle(style) {
					kind = document.ElementTitle
				} else if strings.HasPrefix(strings.ToLower(style), "list") {
					kind = document.ElementListItem
				}
				out.elements = append(out.elements, document.Element{Text: p, Type: kind})
			case "tc":
				row = append(row, cell.String())
			case "tr":
				if table != nil && len(row) > 0 {
					if table.Headers == nil {
						table.Headers = row
					} else {
						table.Rows = append(table.Rows, row)
					}
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 && table != nil {
					out.tables = append(out.tables, *table)
					out.elements = append(out.elements, document.Element{Text: table.Markdown(), Type: document.ElementTable})
					table = nil
				}
			}
		}
	}
	return out, nil
}

func isHeadingStyle(style string) bool {
	lower := strings.ToLower(style)
	return lower == "title" || lower == "subtitle" || strings.HasPrefix(lower, "heading")
}
