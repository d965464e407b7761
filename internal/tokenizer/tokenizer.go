// Package tokenizer turns free text into the normalized terms used for both
// keyword extraction and BM25 scoring. Ingest and query must share it so the
// two sides see the same vocabulary.
package tokenizer

import "strings"

// Tokenize lowercases text, treats every character outside [a-z0-9] as a
// separator and returns the remaining terms in order, minus single-character
// terms and stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), isSeparator)

	// Filter in place.
	terms := fields[:0]
	for _, f := range fields {
		if len(f) <= 1 || IsStopword(f) {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// Count returns the term frequencies of text and its token length.
func Count(text string) (map[string]int, int) {
	terms := Tokenize(text)
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf, len(terms)
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
