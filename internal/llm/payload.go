package llm

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

// SectionPayload is the structured result of one section extraction.
// The set of implementations is closed: one struct per section key plus
// UnparsedPayload for replies that did not satisfy their schema.
type SectionPayload interface {
	SectionKey() constants.SectionKey
	sectionPayload()
}

type Volume struct {
	Name      string   `json:"name"`
	PageLimit int      `json:"page_limit,omitempty"`
	Contents  []string `json:"contents,omitempty"`
}

type SectionLPayload struct {
	SubmissionInstructions string   `json:"submission_instructions"`
	Volumes                []Volume `json:"volumes,omitempty"`
	FormatRequirements     []string `json:"format_requirements,omitempty"`
	DueDate                string   `json:"due_date,omitempty"`
	QuestionsDeadline      string   `json:"questions_deadline,omitempty"`
	SubmissionMethod       string   `json:"submission_method,omitempty"`
}

type EvaluationFactor struct {
	Name        string   `json:"name"`
	Weight      string   `json:"weight,omitempty"`
	Description string   `json:"description,omitempty"`
	Subfactors  []string `json:"subfactors,omitempty"`
}

type SectionMPayload struct {
	EvaluationFactors  []EvaluationFactor `json:"evaluation_factors"`
	BasisOfAward       string             `json:"basis_of_award,omitempty"`
	RelativeImportance string             `json:"relative_importance,omitempty"`
}

type Task struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Deliverable struct {
	Name      string `json:"name"`
	Due       string `json:"due,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

type SOWPayload struct {
	Scope               string        `json:"scope"`
	Tasks               []Task        `json:"tasks"`
	Deliverables        []Deliverable `json:"deliverables,omitempty"`
	PeriodOfPerformance string        `json:"period_of_performance,omitempty"`
	PlaceOfPerformance  string        `json:"place_of_performance,omitempty"`
}

type CLIN struct {
	Number       string  `json:"number"`
	Description  string  `json:"description,omitempty"`
	Quantity     float64 `json:"quantity,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	ContractType string  `json:"contract_type,omitempty"`
}

type SectionBPayload struct {
	CLINs        []CLIN `json:"clins"`
	ContractType string `json:"contract_type,omitempty"`
	PricingNotes string `json:"pricing_notes,omitempty"`
}

type SpecialRequirement struct {
	Number      string `json:"number,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type SectionHPayload struct {
	SpecialRequirements  []SpecialRequirement `json:"special_requirements"`
	SecurityRequirements []string             `json:"security_requirements,omitempty"`
	KeyPersonnel         []string             `json:"key_personnel,omitempty"`
}

type DataItem struct {
	Number       string `json:"number"`
	Title        string `json:"title"`
	Frequency    string `json:"frequency,omitempty"`
	Due          string `json:"due,omitempty"`
	Distribution string `json:"distribution,omitempty"`
}

type CDRLPayload struct {
	DataItems []DataItem `json:"data_items"`
}

type Clause struct {
	Number                  string `json:"number"`
	Title                   string `json:"title,omitempty"`
	Date                    string `json:"date,omitempty"`
	IncorporatedByReference bool   `json:"incorporated_by_reference,omitempty"`
}

type SectionKPayload struct {
	Representations []Clause `json:"representations"`
	Notes           string   `json:"notes,omitempty"`
}

type SectionIPayload struct {
	Clauses []Clause `json:"clauses"`
}

// UnparsedPayload keeps a reply that was valid JSON but failed its schema
// (or could not be decoded into the section type) so it can be audited.
type UnparsedPayload struct {
	Section constants.SectionKey
	Raw     json.RawMessage
	Reason  string
}

func (SectionLPayload) SectionKey() constants.SectionKey { return constants.KeySectionL }
func (SectionMPayload) SectionKey() constants.SectionKey { return constants.KeySectionM }
func (SOWPayload) SectionKey() constants.SectionKey      { return constants.KeySOW }
func (SectionBPayload) SectionKey() constants.SectionKey { return constants.KeySectionB }
func (SectionHPayload) SectionKey() constants.SectionKey { return constants.KeySectionH }
func (CDRLPayload) SectionKey() constants.SectionKey     { return constants.KeyCDRL }
func (SectionKPayload) SectionKey() constants.SectionKey { return constants.KeySectionK }
func (SectionIPayload) SectionKey() constants.SectionKey { return constants.KeySectionI }
func (p UnparsedPayload) SectionKey() constants.SectionKey {
	return p.Section
}

func (SectionLPayload) sectionPayload() {}
func (SectionMPayload) sectionPayload() {}
func (SOWPayload) sectionPayload()      {}
func (SectionBPayload) sectionPayload() {}
func (SectionHPayload) sectionPayload() {}
func (CDRLPayload) sectionPayload()     {}
func (SectionKPayload) sectionPayload() {}
func (SectionIPayload) sectionPayload() {}
func (UnparsedPayload) sectionPayload() {}

// MarshalJSON emits the raw reply unchanged.
func (p UnparsedPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

// Validated reports whether p passed its section schema.
func Validated(p SectionPayload) bool {
	_, unparsed := p.(UnparsedPayload)
	return p != nil && !unparsed
}

// Decode turns schema-validated JSON into the payload type for key.
func Decode(key constants.SectionKey, raw []byte) (SectionPayload, error) {
	var (
		p   SectionPayload
		err error
	)
	switch key {
	case constants.KeySectionL:
		p, err = decodeAs[SectionLPayload](raw)
	case constants.KeySectionM:
		p, err = decodeAs[SectionMPayload](raw)
	case constants.KeySOW:
		p, err = decodeAs[SOWPayload](raw)
	case constants.KeySectionB:
		p, err = decodeAs[SectionBPayload](raw)
	case constants.KeySectionH:
		p, err = decodeAs[SectionHPayload](raw)
	case constants.KeyCDRL:
		p, err = decodeAs[CDRLPayload](raw)
	case constants.KeySectionK:
		p, err = decodeAs[SectionKPayload](raw)
	case constants.KeySectionI:
		p, err = decodeAs[SectionIPayload](raw)
	default:
		return nil, fmt.Errorf("unknown section key %q", key)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return p, nil
}

func decodeAs[T SectionPayload](raw []byte) (SectionPayload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
