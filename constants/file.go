package constants

import "strings"

// File formats understood by the content reader.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
	DOCX  = "DOCX"
	XLSX  = "XLSX"
	HTML  = "HTML"
)

// FileTypes holds the formats reported in the source manifest.
var FileTypes = []string{PDF, IMAGE, TXT, DOCX, XLSX, HTML}

// AllowedExtensions holds the default extensions picked up by directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"xlsx": {},
	"txt":  {},
	"md":   {},
	"csv":  {},
	"htm":  {},
	"html": {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the manifest format for a normalized extension, or "" if unknown.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff", "bmp", "gif":
		return IMAGE
	case "txt", "md", "csv", "text":
		return TXT
	case "docx":
		return DOCX
	case "xlsx", "xlsm":
		return XLSX
	case "htm", "html":
		return HTML
	default:
		return ""
	}
}

// IsImageExt reports whether ext is a raster image tesseract can read directly.
func IsImageExt(ext string) bool {
	return MapExtToFormat(ext) == IMAGE
}
