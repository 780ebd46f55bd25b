package reader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

var (
	htmlPolicy  = bluemonday.UGCPolicy()
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// readHTML sanitizes the page and converts it to markdown, keeping tables.
func (r *Reader) readHTML(_ context.Context, path, _ string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	clean := htmlPolicy.SanitizeBytes(raw)
	md, err := mdConverter.ConvertString(string(clean))
	if err != nil {
		return Result{}, fmt.Errorf("html to markdown: %w", err)
	}
	return Result{Text: strings.TrimSpace(md), Method: MethodHTML}, nil
}

// htmlTables lifts every <table>; th cells (or the first row) become headers.
func htmlTables(path string) ([]document.TableData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tables []document.TableData
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		t := document.TableData{Source: path, Name: strings.TrimSpace(tbl.Find("caption").First().Text())}
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			headerRow := tr.Find("th").Length() > 0 && tr.Find("td").Length() == 0
			tr.Find("th, td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(td.Text()), " "))
			})
			if len(cells) == 0 {
				return
			}
			if t.Headers == nil && (headerRow || len(t.Rows) == 0) {
				t.Headers = cells
				return
			}
			t.Rows = append(t.Rows, cells)
		})
		if t.Headers != nil || len(t.Rows) > 0 {
			tables = append(tables, t)
		}
	})
	return tables, nil
}
