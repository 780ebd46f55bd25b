package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SanitizeAgainstSchema applies schema-guided repairs to a model reply:
// nulls are dropped, numeric strings become numbers where a number is
// expected, numbers become strings where a string is expected, and a lone
// value is wrapped where an array is expected. It returns the cleaned
// JSON and the JSON-pointer-ish paths that were touched.
func SanitizeAgainstSchema(schema map[string]any, raw []byte) ([]byte, []string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, nil, fmt.Errorf("unmarshal: %w", err)
	}
	var changed []string
	v = sanitizeValue(schema, v, "", &changed)
	out, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal: %w", err)
	}
	return out, changed, nil
}

func sanitizeValue(schema map[string]any, v any, path string, changed *[]string) any {
	if schema == nil {
		return v
	}
	typ, _ := schema["type"].(string)
	switch typ {
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		props, _ := schema["properties"].(map[string]any)
		for k, child := range m {
			p := path + "/" + k
			if child == nil {
				delete(m, k)
				*changed = append(*changed, p)
				continue
			}
			ps, _ := props[k].(map[string]any)
			m[k] = sanitizeValue(ps, child, p, changed)
		}
		return m
	case "array":
		items, _ := schema["items"].(map[string]any)
		arr, ok := v.([]any)
		if !ok {
			*changed = append(*changed, path)
			arr = []any{v}
		}
		out := arr[:0]
		for i, el := range arr {
			if el == nil {
				*changed = append(*changed, fmt.Sprintf("%s/%d", path, i))
				continue
			}
			out = append(out, sanitizeValue(items, el, fmt.Sprintf("%s/%d", path, i), changed))
		}
		return out
	case "number", "integer":
		s, ok := v.(string)
		if !ok {
			return v
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*changed = append(*changed, path)
			return f
		}
		return v
	case "string":
		switch x := v.(type) {
		case float64:
			*changed = append(*changed, path)
			return strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			*changed = append(*changed, path)
			return strconv.FormatBool(x)
		}
		return v
	}
	return v
}
