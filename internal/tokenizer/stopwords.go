package tokenizer

// stopwords is the fixed English stopword set. Changing it changes the
// vocabulary of every stored chunk, so existing corpora need re-ingesting.
var stopwords = toSet(
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "will", "would", "could", "should", "may", "might", "shall", "can", "need",
	"to", "of", "in", "for", "on", "with", "at", "by", "from", "as", "into", "through", "during", "before",
	"after", "above", "below", "between", "out", "off", "over", "under", "again", "further", "then", "once",
	"here", "there", "when", "where", "why", "how", "all", "both", "each", "few", "more", "most", "other",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than", "too", "very", "and", "but",
	"or", "if", "while", "about", "it", "its", "this", "that", "these", "those", "i", "me", "my", "we", "our",
	"you", "your", "he", "him", "his", "she", "her", "they", "them", "their", "what", "which", "who", "whom",
	"am", "any", "because", "until", "against", "up", "down", "just", "also", "us",
	"ours", "ourselves", "yours", "yourself", "yourselves", "himself", "hers", "herself",
	"itself", "theirs", "themselves", "myself", "having", "doing",
)

// IsStopword reports whether term is dropped by Tokenize. term must already
// be lowercase.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
