package reader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readPlainText reads the file as UTF-8. Bytes that are not valid UTF-8
// but contain no NULs are decoded as Windows-1252, which covers most
// exports from older procurement systems.
func (r *Reader) readPlainText(_ context.Context, path, _ string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	text, err := decodeText(raw)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Method: MethodPlainText}, nil
}

func decodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", errors.New("binary content")
	}
	if utf8.Valid(raw) {
		return norm.NFC.String(string(bytes.TrimSpace(raw))), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(string(bytes.TrimSpace(decoded))), nil
}
