package decision

import (
	"strings"
	"unicode"
)

// stopwords are skipped during goal tokenization so that filler in a goal
// like "find the pricing page" does not dilute coverage scoring.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "for": {}, "find": {}, "get": {},
	"go": {}, "in": {}, "into": {}, "me": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "page": {}, "site": {}, "the": {}, "then": {},
	"to": {}, "with": {},
}

// Goal is a pre-tokenized journey objective.
type Goal struct {
	Raw    string
	tokens []string
}

// NewGoal tokenizes a raw goal string once so scoring and goal matching
// never re-tokenize per step.
func NewGoal(raw string) Goal {
	return Goal{Raw: raw, tokens: Tokenize(raw)}
}

// Tokens returns the goal's significant tokens.
func (g Goal) Tokens() []string { return g.tokens }

// Tokenize lowercases, splits on non-alphanumeric runes and drops stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Coverage scores how much of the goal the given text answers, in [0,1]:
// the fraction of goal tokens present in the text. A token counts as present
// on an exact match, or on a shared prefix of at least four runes so that
// "pricing" still matches "prices".
func (g Goal) Coverage(text string) float64 {
	if len(g.tokens) == 0 {
		return 0
	}
	words := Tokenize(text)
	if len(words) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range g.tokens {
		for _, w := range words {
			if tokenMatch(tok, w) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(g.tokens))
}

func tokenMatch(a, b string) bool {
	if a == b {
		return true
	}
	const prefix = 4
	if len(a) < prefix || len(b) < prefix {
		return false
	}
	return a[:prefix] == b[:prefix]
}
