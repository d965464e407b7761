// Package bm25 ranks chunks against a free-text query with Okapi BM25.
//
// Nothing is indexed ahead of time: every call recomputes document
// frequencies and the average chunk length from the snapshot it is given, so
// callers can add and delete documents freely between searches. The cost is
// O(total tokens) per query, which is fine for knowledge bases of a few
// thousand chunks.
package bm25

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/seanblong/kbsearch/internal/tokenizer"
	"github.com/seanblong/kbsearch/pkg/models"
)

// BM25 parameters.
const (
	K1 = 1.5
	B  = 0.75
)

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 5

// parallelThreshold is the corpus size below which tokenization stays on the
// calling goroutine.
const parallelThreshold = 2000

// Hit is a ranked chunk. Score is rounded to two decimals for display; the
// order was fixed using the unrounded value.
type Hit struct {
	Chunk models.Chunk
	Score float64
	Rank  int
}

// Ranker scores corpora. The zero value is not usable; call New.
type Ranker struct {
	parallelism int
	threshold   int
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithParallelism spreads per-chunk tokenization over n goroutines once the
// corpus is large enough. n <= 1 disables it.
func WithParallelism(n int) Option {
	return func(r *Ranker) {
		if n < 1 {
			n = 1
		}
		r.parallelism = n
	}
}

func withThreshold(n int) Option {
	return func(r *Ranker) { r.threshold = n }
}

// New creates a Ranker. By default it uses one goroutine per CPU for large
// corpora.
func New(opts ...Option) *Ranker {
	r := &Ranker{parallelism: runtime.NumCPU(), threshold: parallelThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRanker = New()

// Search ranks corpus against query with the default Ranker.
func Search(query string, corpus []models.Chunk, limit int) []Hit {
	return defaultRanker.Search(query, corpus, limit)
}

// Search returns at most limit chunks that share at least one term with
// query, best first. A query made only of stopwords, or an empty corpus,
// yields no hits.
func (r *Ranker) Search(query string, corpus []models.Chunk, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := r.rank(query, corpus)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	hits := make([]Hit, len(ranked))
	for i, s := range ranked {
		hits[i] = Hit{
			Chunk: corpus[s.index],
			Score: round2(s.score),
			Rank:  i + 1,
		}
	}
	return hits
}

type scored struct {
	index int
	score float64
}

// chunkStats is the tokenized form of one chunk.
type chunkStats struct {
	tf     map[string]int
	length int
}

// rank returns every matching chunk ordered by full-precision score.
func (r *Ranker) rank(query string, corpus []models.Chunk) []scored {
	queryTerms := distinct(tokenizer.Tokenize(query))
	if len(queryTerms) == 0 || len(corpus) == 0 {
		return nil
	}

	stats := r.analyze(corpus)

	var total int
	df := make(map[string]int, len(queryTerms))
	for _, s := range stats {
		total += s.length
		for _, term := range queryTerms {
			if s.tf[term] > 0 {
				df[term]++
			}
		}
	}

	n := len(corpus)
	avgDocLength := float64(total) / float64(n)
	if avgDocLength == 0 {
		avgDocLength = 1
	}

	idfs := make(map[string]float64, len(queryTerms))
	for _, term := range queryTerms {
		idfs[term] = idf(n, df[term])
	}

	var out []scored
	for i, s := range stats {
		var score float64
		matched := false
		for _, term := range queryTerms {
			tf := s.tf[term]
			if tf == 0 {
				continue
			}
			matched = true
			score += idfs[term] * tfNorm(tf, s.length, avgDocLength)
		}
		if matched {
			out = append(out, scored{index: i, score: score})
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].score > out[b].score
	})
	return out
}

// analyze tokenizes every chunk of the corpus.
func (r *Ranker) analyze(corpus []models.Chunk) []chunkStats {
	stats := make([]chunkStats, len(corpus))
	fill := func(from, to int) {
		for i := from; i < to; i++ {
			tf, length := tokenizer.Count(corpus[i].Content)
			stats[i] = chunkStats{tf: tf, length: length}
		}
	}

	if r.parallelism <= 1 || len(corpus) < r.threshold {
		fill(0, len(corpus))
		return stats
	}

	// Each goroutine owns a disjoint slice range of stats.
	step := (len(corpus) + r.parallelism - 1) / r.parallelism
	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for from := 0; from < len(corpus); from += step {
		to := min(from+step, len(corpus))
		g.Go(func() error {
			fill(from, to)
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

// idf is ln((N - df + 0.5) / (df + 0.5) + 1).
func idf(n, df int) float64 {
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

// tfNorm is tf * (k1 + 1) / (tf + k1 * (1 - b + b * dl / avgdl)).
func tfNorm(tf, dl int, avgDocLength float64) float64 {
	f := float64(tf)
	return f * (K1 + 1) / (f + K1*(1-B+B*float64(dl)/avgDocLength))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
