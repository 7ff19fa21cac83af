package classifier

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "you": {}, "your": {},
	"thank": {}, "thanks": {}, "total": {}, "amount": {}, "invoice": {}, "receipt": {},
	"date": {}, "bill": {}, "no": {}, "inr": {}, "rs": {},
}

// tokenize lower-cases s and splits it into word tokens, dropping numbers,
// single characters and stopwords.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || isNumeric(f) {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// features returns the tokens of vendor, counted twice, followed by those of text.
func features(vendor, text string) []string {
	v := tokenize(vendor)
	out := make([]string, 0, 2*len(v)+8)
	out = append(out, v...)
	out = append(out, v...)
	return append(out, tokenize(text)...)
}
