// Package keywords picks the most frequent terms of a passage for display.
// The result is never used for ranking.
package keywords

import (
	"sort"

	"github.com/seanblong/kbsearch/internal/tokenizer"
)

// MaxKeywords caps the number of terms Extract returns.
const MaxKeywords = 50

// Extract returns the terms of text ordered by descending frequency, ties
// broken by first occurrence, truncated to MaxKeywords.
func Extract(text string) []string {
	terms := tokenizer.Tokenize(text)

	freq := make(map[string]int, len(terms))
	var order []string
	for _, t := range terms {
		if freq[t] == 0 {
			order = append(order, t)
		}
		freq[t]++
	}

	// order is first-occurrence order; a stable sort keeps it for ties.
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	return order
}
