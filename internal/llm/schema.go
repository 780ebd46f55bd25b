package llm

import (
	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

// Schemas are JSON-Schema (draft 2020-12 subset) maps. They are sent to
// the oracle as a structured output constraint and validated locally.
// Extra properties are allowed; models routinely add commentary fields.

func str() map[string]any  { return map[string]any{"type": "string"} }
func num() map[string]any  { return map[string]any{"type": "number"} }
func intg() map[string]any { return map[string]any{"type": "integer", "minimum": 0} }
func boolean() map[string]any {
	return map[string]any{"type": "boolean"}
}

func arr(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func obj(props map[string]any, required ...string) map[string]any {
	m := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

func nonEmpty() map[string]any { return map[string]any{"type": "string", "minLength": 1} }

var clauseRef = obj(map[string]any{
	"number":                    nonEmpty(),
	"title":                     str(),
	"date":                      str(),
	"incorporated_by_reference": boolean(),
}, "number")

var sectionSchemas = map[constants.SectionKey]map[string]any{
	constants.KeySectionL: obj(map[string]any{
		"submission_instructions": nonEmpty(),
		"volumes": arr(obj(map[string]any{
			"name":       nonEmpty(),
			"page_limit": intg(),
			"contents":   arr(str()),
		}, "name")),
		"format_requirements": arr(str()),
		"due_date":            str(),
		"questions_deadline":  str(),
		"submission_method":   str(),
	}, "submission_instructions"),

	constants.KeySectionM: obj(map[string]any{
		"evaluation_factors": arr(obj(map[string]any{
			"name":        nonEmpty(),
			"weight":      str(),
			"description": str(),
			"subfactors":  arr(str()),
		}, "name")),
		"basis_of_award":      str(),
		"relative_importance": str(),
	}, "evaluation_factors"),

	constants.KeySOW: obj(map[string]any{
		"scope": nonEmpty(),
		"tasks": arr(obj(map[string]any{
			"id":          str(),
			"title":       nonEmpty(),
			"description": str(),
		}, "title")),
		"deliverables": arr(obj(map[string]any{
			"name":      nonEmpty(),
			"due":       str(),
			"frequency": str(),
		}, "name")),
		"period_of_performance": str(),
		"place_of_performance":  str(),
	}, "scope", "tasks"),

	constants.KeySectionB: obj(map[string]any{
		"clins": arr(obj(map[string]any{
			"number":        nonEmpty(),
			"description":   str(),
			"quantity":      num(),
			"unit":          str(),
			"contract_type": str(),
		}, "number")),
		"contract_type": str(),
		"pricing_notes": str(),
	}, "clins"),

	constants.KeySectionH: obj(map[string]any{
		"special_requirements": arr(obj(map[string]any{
			"number":      str(),
			"title":       nonEmpty(),
			"description": str(),
		}, "title")),
		"security_requirements": arr(str()),
		"key_personnel":         arr(str()),
	}, "special_requirements"),

	constants.KeyCDRL: obj(map[string]any{
		"data_items": arr(obj(map[string]any{
			"number":       nonEmpty(),
			"title":        nonEmpty(),
			"frequency":    str(),
			"due":          str(),
			"distribution": str(),
		}, "number", "title")),
	}, "data_items"),

	constants.KeySectionK: obj(map[string]any{
		"representations": arr(clauseRef),
		"notes":           str(),
	}, "representations"),

	constants.KeySectionI: obj(map[string]any{
		"clauses": arr(clauseRef),
	}, "clauses"),
}

// SectionSchema returns the schema for a section key.
func SectionSchema(key constants.SectionKey) (map[string]any, bool) {
	s, ok := sectionSchemas[key]
	return s, ok
}

// RequirementKinds are the modal verbs a requirement statement is filed under.
var RequirementKinds = []string{"shall", "must", "will", "should"}

// RequirementsSchema constrains the requirement-extraction pass.
func RequirementsSchema() map[string]any {
	kinds := make([]any, len(RequirementKinds))
	for i, k := range RequirementKinds {
		kinds[i] = k
	}
	return obj(map[string]any{
		"requirements": arr(obj(map[string]any{
			"text":      nonEmpty(),
			"kind":      map[string]any{"type": "string", "enum": kinds},
			"reference": str(),
			"page":      intg(),
		}, "text", "kind")),
	}, "requirements")
}
