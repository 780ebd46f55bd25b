package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
)

const hashBlockSize = 64 << 10

// FileKey returns the content hash of path, read in fixed-size blocks so
// large files are never loaded whole. When the file cannot be read the key
// falls back to path plus modification time, and to the bare path when even
// stat fails.
func FileKey(path string) string {
	if sum, err := HashFile(path); err == nil {
		return sum
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "path:" + path
	}
	return "path:" + path + "@" + strconv.FormatInt(fi.ModTime().UnixNano(), 10)
}

// HashFile returns the hex sha256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExtractionKey composes the extraction partition key from a file key and section.
func ExtractionKey(fileKey, section string) string {
	return fileKey + ":" + section
}
