package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

var sectionInstructions = map[constants.SectionKey]string{
	constants.KeySectionL: "Extract the proposal submission instructions: volumes with page limits, format rules, due dates and the submission method.",
	constants.KeySectionM: "Extract the evaluation factors with their subfactors and relative weights, and the basis of award.",
	constants.KeySOW:      "Extract the scope of work, the numbered tasks, the deliverables, and the period and place of performance.",
	constants.KeySectionB: "Extract every CLIN with its description, quantity, unit and contract type. Use the pricing tables when present.",
	constants.KeySectionH: "Extract the special contract requirements, security requirements and key personnel.",
	constants.KeyCDRL:     "Extract each contract data requirement (CDRL data item) with its number, title, frequency, due date and distribution.",
	constants.KeySectionK: "Extract the representations and certifications listed, with clause numbers, titles and dates.",
	constants.KeySectionI: "Extract the contract clauses listed, with clause numbers, titles, dates and whether they are incorporated by reference.",
}

const systemPreamble = "You are a federal solicitation analyst. Return ONLY a JSON object that matches the JSON Schema provided. Never output null; omit fields that are not present."

// SectionRequest builds the oracle request for one document of a section.
// tables is pre-rendered markdown and may be empty.
func SectionRequest(key constants.SectionKey, filename, content, tables string) (Request, error) {
	schema, ok := SectionSchema(key)
	if !ok {
		return Request{}, fmt.Errorf("no schema for section %q", key)
	}

	var b strings.Builder
	b.WriteString(sectionInstructions[key])
	b.WriteString("\n\nFilename: ")
	b.WriteString(filename)
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(content)
	if tables != "" {
		b.WriteString("\n\nTables extracted from the document:\n")
		b.WriteString(tables)
	}

	return Request{
		System:     systemPreamble + "\n\nJSON Schema:\n" + mustJSON(schema),
		Prompt:     b.String(),
		Schema:     schema,
		SchemaName: "section/" + string(key),
	}, nil
}

// RequirementsRequest builds the second-pass request that lists the
// requirement statements in one chunk of a section.
func RequirementsRequest(key constants.SectionKey, source, chunk string) Request {
	schema := RequirementsSchema()

	var b strings.Builder
	b.WriteString("List every requirement statement in the text below. ")
	b.WriteString("A requirement is a sentence that obliges the offeror or contractor, usually with shall, must, will or should. ")
	b.WriteString("Quote the sentence verbatim in 'text' and set 'kind' to its modal verb.")
	fmt.Fprintf(&b, "\n\nSection: %s\nSource: %s\n\nText:\n%s", key, source, chunk)

	return Request{
		System:     systemPreamble + "\n\nJSON Schema:\n" + mustJSON(schema),
		Prompt:     b.String(),
		Schema:     schema,
		SchemaName: "requirements",
	}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
