package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a reply holds no parseable JSON object.
var ErrNoJSON = errors.New("no json object found in reply")

var reFence = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\n?(.*?)```")

// LocateJSON finds the JSON object in a model reply. Replies may be bare
// JSON, fenced in a code block, or embedded in prose.
func LocateJSON(reply string) ([]byte, error) {
	s := strings.TrimSpace(reply)
	if s == "" {
		return nil, ErrNoJSON
	}
	if isObject(s) {
		return []byte(s), nil
	}
	for _, m := range reFence.FindAllStringSubmatch(s, -1) {
		body := strings.TrimSpace(m[1])
		if isObject(body) {
			return []byte(body), nil
		}
	}
	first := strings.IndexByte(s, '{')
	if first < 0 {
		return nil, ErrNoJSON
	}
	obj, start, found := firstBalancedObject(s)
	if found && start == first {
		if b, ok := objectOrRepaired(obj); ok {
			return b, nil
		}
	}
	// A key missing one quote flips string parity, so no balanced span
	// opens at the first brace. Repair the outermost span instead.
	if last := strings.LastIndexByte(s, '}'); last > first {
		fixed := repairJSON(s[first : last+1])
		if isObject(fixed) {
			return []byte(fixed), nil
		}
		if inner, _, ok := firstBalancedObject(fixed); ok && isObject(inner) {
			return []byte(inner), nil
		}
	}
	if found && start != first {
		if b, ok := objectOrRepaired(obj); ok {
			return b, nil
		}
	}
	return nil, ErrNoJSON
}

func isObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var m map[string]any
	return json.Unmarshal([]byte(s), &m) == nil
}

func objectOrRepaired(obj string) ([]byte, bool) {
	if isObject(obj) {
		return []byte(obj), true
	}
	if fixed := repairJSON(obj); isObject(fixed) {
		return []byte(fixed), true
	}
	return nil, false
}

// firstBalancedObject returns the first {...} span with balanced braces
// and its offset, ignoring braces inside string literals.
func firstBalancedObject(s string) (string, int, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inStr, esc := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inStr {
				switch {
				case esc:
					esc = false
				case c == '\\':
					esc = true
				case c == '"':
					inStr = false
				}
				continue
			}
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], start, true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", -1, false
}

// repairJSON fixes keys that lost their opening quote, e.g. `, type":`.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	i := 0
	for i < len(in) {
		ch := in[i]
		if ch != '{' && ch != ',' {
			out = append(out, ch)
			i++
			continue
		}
		out = append(out, ch)
		i++
		for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || in[i] == '"' || !isKeyStart(in[i]) {
			continue
		}
		keyStart := i
		for i < len(in) && isKeyRune(in[i]) {
			i++
		}
		if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
			out = append(out, '"')
		}
		out = append(out, in[keyStart:i]...)
	}
	return string(out)
}

func isKeyStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isKeyRune(r rune) bool {
	return isKeyStart(r) || r == '_' || (r >= '0' && r <= '9')
}
