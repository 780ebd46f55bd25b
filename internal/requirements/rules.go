package requirements

import (
	"regexp"
	"strings"
)

var (
	reSentenceEnd = regexp.MustCompile(`[.!?;](?:\s+|$)|\n\s*\n`)
	reModal       = regexp.MustCompile(`(?i)\b(shall|must|will)\b`)
	reSpace       = regexp.MustCompile(`\s+`)
)

// minSentenceRunes drops headers and fragments like "Offerors shall:".
const minSentenceRunes = 20

type ruleMatch struct {
	Text string
	Kind string
}

// matchRules returns the sentences of text that carry a shall, must or
// will obligation, each tagged with the first modal it contains.
func matchRules(text string) []ruleMatch {
	var out []ruleMatch
	for _, s := range splitSentences(text) {
		m := reModal.FindStringSubmatch(s)
		if m == nil || len([]rune(s)) < minSentenceRunes {
			continue
		}
		out = append(out, ruleMatch{Text: s, Kind: strings.ToLower(m[1])})
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range reSentenceEnd.FindAllStringIndex(text, -1) {
		// keep the terminator, drop the trailing whitespace
		end := loc[0] + 1
		if text[loc[0]] == '\n' {
			end = loc[0]
		}
		if s := clean(text[last:end]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := clean(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// dedupKey folds case and whitespace so the same sentence seen through
// chunk overlap or in two passes is kept once per section.
func dedupKey(section, text string) string {
	return section + "\x00" + strings.ToLower(clean(text))
}
