package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/ocr"
)

// readPDFLayout extracts layout text with pdftotext. A PDF whose sampled
// pages average under ScannedCharsPerPage is treated as scanned: it is
// OCRed up to the page cap and the longer of the two outputs is kept.
// The scanned verdict is cached per file key.
func (r *Reader) readPDFLayout(ctx context.Context, path, key string) (Result, error) {
	scanned, known := false, false
	if r.cache != nil {
		scanned, known = cache.Load[bool](r.cache, cache.Scanned, key)
	}
	if !known {
		var err error
		scanned, err = r.detectScanned(ctx, path)
		if err != nil {
			return Result{}, err
		}
		if r.cache != nil {
			cache.Save(r.cache, cache.Scanned, key, scanned)
		}
	}

	layout, pages, err := r.engine.PDFText(ctx, path, 0, 0)
	if err != nil && !scanned {
		return Result{}, err
	}
	res := Result{Text: strings.TrimSpace(layout), Method: MethodPDFLayout, Pages: pages, Scanned: scanned}
	if !scanned {
		return res, nil
	}

	r.logger.Info("pdf looks scanned, running ocr", "file", path, "cached_verdict", known)
	ocrText, ocrPages, ocrErr := r.engine.PDFOCR(ctx, path, r.engine.MaxPages())
	if ocrErr != nil {
		r.logger.Warn("pdf ocr failed", "file", path, "error", ocrErr)
		if res.Text == "" {
			return Result{}, ocrErr
		}
		return res, nil
	}
	if utf8.RuneCountInString(ocrText) > utf8.RuneCountInString(res.Text) {
		res.Text = ocrText
		res.Method = MethodPDFOCR
		res.UsedFallback = true
		res.Pages = max(res.Pages, ocrPages)
	}
	return res, nil
}

// detectScanned samples the first SamplePages pages and compares the
// average characters per page against the threshold.
func (r *Reader) detectScanned(ctx context.Context, path string) (bool, error) {
	sample, samplePages, err := r.engine.PDFText(ctx, path, 1, r.cfg.SamplePages)
	if err != nil {
		return false, err
	}

	pages := samplePages
	if n, err := api.PageCountFile(path); err == nil && n > 0 {
		pages = min(n, r.cfg.SamplePages)
	}
	if pages <= 0 {
		pages = 1
	}

	chars := 0
	for _, ch := range sample {
		if !unicode.IsSpace(ch) {
			chars++
		}
	}
	avg := chars / pages
	r.logger.Debug("pdf scan sample", "file", path, "pages", pages, "avg_chars", avg)
	return avg < r.cfg.ScannedCharsPerPage, nil
}

// readPDFNative is the pure-Go path for when poppler is unavailable.
func (r *Reader) readPDFNative(_ context.Context, path, _ string) (Result, error) {
	pages, err := pdfPageTexts(path)
	if err != nil {
		return Result{}, err
	}
	text := strings.TrimSpace(strings.Join(pages, ocr.PageBreak))
	if text == "" {
		return Result{}, errors.New("no text content found in pdf")
	}
	return Result{Text: text, Method: MethodPDFNative, Pages: len(pages)}, nil
}

// pdfPageTexts returns the text of every page via pdfcpu content streams.
func pdfPageTexts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, 0, pctx.PageCount)
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		pages = append(pages, pdfPageText(pctx, pageNr))
	}
	return pages, nil
}

func pdfPageText(pctx *model.Context, pageNr int) string {
	rd, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil || rd == nil {
		return ""
	}
	data, err := io.ReadAll(rd)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromContentStream pulls shown strings out of Tj, TJ and ' operators
// and turns positioning operators into whitespace.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")), bytes.HasSuffix(line, []byte("ET")):
			sb.WriteByte('\n')
		}
	}
	return ocr.Normalize(sb.String())
}

// decodePDFString handles the escape sequences of PDF literal strings.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// up to three octal digits
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}
