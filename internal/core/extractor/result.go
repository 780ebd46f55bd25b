package extractor

import (
	"encoding/json"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
)

// SourceDocument links one file to the section it populated.
type SourceDocument struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Section  string `json:"section"`
}

// FileError is a per-file failure record.
type FileError struct {
	File  string           `json:"file"`
	Kind  common.ErrorKind `json:"kind"`
	Error string           `json:"error"`
}

// Result is the aggregate of an extraction pass. Sections hold the first
// validated payload per section key, in the order files were added; an
// unvalidated payload fills a section only until a validated one arrives.
type Result struct {
	Sections map[constants.SectionKey]llm.SectionPayload
	Sources  []SourceDocument
	Files    []FileResult
	Errors   []FileError
}

func NewResult() *Result {
	return &Result{Sections: make(map[constants.SectionKey]llm.SectionPayload)}
}

// Add folds one file outcome into the result.
func (r *Result) Add(fr FileResult) {
	r.Files = append(r.Files, fr)
	if fr.Section == "" || fr.Payload == nil {
		return
	}
	current, have := r.Sections[fr.Section]
	if !fr.Validated {
		if !have {
			r.Sections[fr.Section] = fr.Payload
		}
		return
	}
	if !have || !llm.Validated(current) {
		r.Sections[fr.Section] = fr.Payload
	}
	r.Sources = append(r.Sources, SourceDocument{
		Filename: fr.File.Filename,
		Type:     fr.File.Format(),
		Section:  string(fr.Category),
	})
}

func (r *Result) AddError(f document.File, err error) {
	r.Errors = append(r.Errors, FileError{File: f.Filename, Kind: common.Kind(err), Error: err.Error()})
}

// Payload returns the payload stored for key, if any.
func (r *Result) Payload(key constants.SectionKey) (llm.SectionPayload, bool) {
	p, ok := r.Sections[key]
	return p, ok
}

// SourceFiles returns the files classified under key that produced text,
// in the order they were added.
func (r *Result) SourceFiles(key constants.SectionKey) []FileResult {
	var out []FileResult
	for _, fr := range r.Files {
		if fr.Section == key && fr.Text != "" {
			out = append(out, fr)
		}
	}
	return out
}

// MarshalJSON emits every section key (null when absent) followed by
// source_documents.
func (r *Result) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(constants.AllSectionKeys)+1)
	for _, k := range constants.AllSectionKeys {
		if p, ok := r.Sections[k]; ok {
			m[string(k)] = p
		} else {
			m[string(k)] = nil
		}
	}
	sources := r.Sources
	if sources == nil {
		sources = []SourceDocument{}
	}
	m["source_documents"] = sources
	return json.Marshal(m)
}
