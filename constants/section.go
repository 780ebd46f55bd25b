package constants

import (
	"strings"
)

// SectionCategory is the document-level classification assigned to every input file.
type SectionCategory string

const (
	SectionL SectionCategory = "SECTION_L"
	SectionM SectionCategory = "SECTION_M"
	SOW      SectionCategory = "SOW"
	SectionB SectionCategory = "SECTION_B"
	SectionH SectionCategory = "SECTION_H"
	CDRL     SectionCategory = "CDRL"
	SectionK SectionCategory = "SECTION_K"
	SectionI SectionCategory = "SECTION_I"
	RFP      SectionCategory = "RFP"
	RFQ      SectionCategory = "RFQ"
	IFB      SectionCategory = "IFB"
	RFI      SectionCategory = "RFI"
	Other    SectionCategory = "OTHER"
)

// SectionKey is the key under which a category's extraction lands in the final result.
type SectionKey string

const (
	KeySectionL SectionKey = "section_l"
	KeySectionM SectionKey = "section_m"
	KeySOW      SectionKey = "sow"
	KeySectionB SectionKey = "section_b"
	KeySectionH SectionKey = "section_h"
	KeyCDRL     SectionKey = "cdrl"
	KeySectionK SectionKey = "section_k"
	KeySectionI SectionKey = "section_i"
)

var allCategories = []SectionCategory{
	SectionL, SectionM, SOW, SectionB, SectionH, CDRL, SectionK, SectionI,
	RFP, RFQ, IFB, RFI, Other,
}

// AllSectionKeys lists the extractable sections in output order.
var AllSectionKeys = []SectionKey{
	KeySectionL, KeySectionM, KeySOW, KeySectionB, KeySectionH, KeyCDRL, KeySectionK, KeySectionI,
}

var categoryKeys = map[SectionCategory]SectionKey{
	SectionL: KeySectionL,
	SectionM: KeySectionM,
	SOW:      KeySOW,
	SectionB: KeySectionB,
	SectionH: KeySectionH,
	CDRL:     KeyCDRL,
	SectionK: KeySectionK,
	SectionI: KeySectionI,
}

// Key returns the section key for c. General solicitation categories
// (RFP, RFQ, IFB, RFI, OTHER) map to no key.
func (c SectionCategory) Key() (SectionKey, bool) {
	k, ok := categoryKeys[c]
	return k, ok
}

// Category is the inverse of SectionCategory.Key.
func (k SectionKey) Category() SectionCategory {
	for c, key := range categoryKeys {
		if key == k {
			return c
		}
	}
	return Other
}

// TableHeavy reports whether prompts for c should carry extracted tables.
func (c SectionCategory) TableHeavy() bool {
	switch c {
	case SectionB, SectionM, CDRL:
		return true
	}
	return false
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps loose user input ("section l", "pws", "cdrls") onto a category.
func Canonicalize(input string) (SectionCategory, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)

	synonyms := map[string]SectionCategory{
		"section l":         SectionL,
		"instructions":      SectionL,
		"section m":         SectionM,
		"evaluation":        SectionM,
		"statement of work": SOW,
		"pws":               SOW,
		"soo":               SOW,
		"section b":         SectionB,
		"pricing":           SectionB,
		"section h":         SectionH,
		"cdrls":             CDRL,
		"section k":         SectionK,
		"reps and certs":    SectionK,
		"section i":         SectionI,
		"clauses":           SectionI,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(strings.ReplaceAll(string(cat), "_", " ")) {
			return cat, true
		}
	}

	return Other, false
}
