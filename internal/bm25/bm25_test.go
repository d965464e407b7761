package bm25

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/seanblong/kbsearch/pkg/models"
)

func chunk(id, doc, content string) models.Chunk {
	return models.Chunk{ID: id, DocumentID: doc, Content: content}
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk.ID
	}
	return out
}

func TestSearch_TermFrequencyOrdering(t *testing.T) {
	corpus := []models.Chunk{
		chunk("C", "d3", "alpha beta gamma delta omega"),
		chunk("B", "d2", "term alpha beta gamma delta"),
		chunk("A", "d1", "term term term term term"),
	}

	hits := Search("term", corpus, 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(hits), ids(hits))
	}
	if hits[0].Chunk.ID != "A" || hits[1].Chunk.ID != "B" {
		t.Errorf("expected [A B], got %v", ids(hits))
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("expected A to outscore B: %.2f vs %.2f", hits[0].Score, hits[1].Score)
	}
	if hits[0].Rank != 1 || hits[1].Rank != 2 {
		t.Errorf("unexpected ranks %d, %d", hits[0].Rank, hits[1].Rank)
	}
}

func TestSearch_EmptyCases(t *testing.T) {
	corpus := []models.Chunk{
		chunk("1", "d1", "How to reset a forgotten password"),
		chunk("2", "d1", "Refunds take five business days"),
	}

	tests := []struct {
		name   string
		query  string
		corpus []models.Chunk
	}{
		{"empty query", "", corpus},
		{"blank query", "   \t", corpus},
		{"stopwords only", "what is the and of it", corpus},
		{"single letters only", "a b c", corpus},
		{"no documents", "password", nil},
		{"no match", "elephant", corpus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hits := Search(tt.query, tt.corpus, 5); len(hits) != 0 {
				t.Errorf("expected no hits, got %v", ids(hits))
			}
		})
	}
}

func TestSearch_Limit(t *testing.T) {
	var corpus []models.Chunk
	for i := 0; i < 20; i++ {
		corpus = append(corpus, chunk(fmt.Sprintf("c%d", i), "d", "password reset steps "+strings.Repeat("extra ", i)))
	}

	if hits := Search("password", corpus, 2); len(hits) != 2 {
		t.Errorf("limit 2 returned %d hits", len(hits))
	}
	if hits := Search("password", corpus, 100); len(hits) != 20 {
		t.Errorf("limit 100 returned %d hits, want all 20", len(hits))
	}
	if hits := Search("password", corpus, 0); len(hits) != DefaultLimit {
		t.Errorf("limit 0 returned %d hits, want default %d", len(hits), DefaultLimit)
	}
	if hits := Search("password", corpus, -3); len(hits) != DefaultLimit {
		t.Errorf("negative limit returned %d hits, want default %d", len(hits), DefaultLimit)
	}
}

func TestSearch_SingleChunkScenario(t *testing.T) {
	corpus := []models.Chunk{chunk("only", "doc", "The quick brown fox jumps over the lazy dog. The dog barks.")}

	hits := Search("dog", corpus, 5)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Score <= 0 {
		t.Errorf("expected positive score, got %v", hits[0].Score)
	}
	// N=1, df=1, tf=2, dl=avgdl=8
	want := round2(math.Log(0.5/1.5+1) * (2 * (K1 + 1) / (2 + K1)))
	if hits[0].Score != want {
		t.Errorf("score = %v, want %v", hits[0].Score, want)
	}

	if hits := Search("elephant", corpus, 5); len(hits) != 0 {
		t.Errorf("expected no hits for elephant, got %v", ids(hits))
	}
}

func TestSearch_DuplicateQueryTermsCountOnce(t *testing.T) {
	corpus := []models.Chunk{
		chunk("1", "d", "billing invoice"),
		chunk("2", "d", "shipping label"),
	}
	once := Search("billing", corpus, 5)
	twice := Search("billing billing BILLING", corpus, 5)
	if len(once) != 1 || len(twice) != 1 || once[0].Score != twice[0].Score {
		t.Errorf("duplicate query terms changed score: %v vs %v", once, twice)
	}
}

func TestSearch_DeletedDocumentNeverReturned(t *testing.T) {
	corpus := []models.Chunk{
		chunk("1", "keep", "password reset instructions"),
		chunk("2", "gone", "password policy and password rotation"),
		chunk("3", "keep", "refund rules"),
	}

	var remaining []models.Chunk
	for _, c := range corpus {
		if c.DocumentID != "gone" {
			remaining = append(remaining, c)
		}
	}

	for _, q := range []string{"password", "policy rotation", "refund password"} {
		for _, h := range Search(q, remaining, 10) {
			if h.Chunk.DocumentID == "gone" {
				t.Errorf("query %q returned chunk of deleted document", q)
			}
		}
	}
}

func TestRank_UsesFullPrecision(t *testing.T) {
	// Lengths differ by one token so scores are close but not equal.
	var corpus []models.Chunk
	for i := 0; i < 30; i++ {
		corpus = append(corpus, chunk(fmt.Sprintf("c%d", i), "d", "router firmware "+strings.Repeat("pad ", 40+i)))
	}
	corpus = append(corpus, chunk("miss", "d", "unrelated"))

	ranked := New().rank("router", corpus)
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].score < ranked[i].score {
			t.Fatalf("rank not descending at %d", i)
		}
	}
	// Shorter chunks score higher; order must follow length even where the
	// rounded scores tie.
	hits := Search("router", corpus, 30)
	for i, h := range hits {
		if want := fmt.Sprintf("c%d", i); h.Chunk.ID != want {
			t.Fatalf("hit %d = %s, want %s", i, h.Chunk.ID, want)
		}
	}
}

func TestRank_StableOnTies(t *testing.T) {
	corpus := []models.Chunk{
		chunk("first", "d", "vpn setup"),
		chunk("second", "d", "vpn setup"),
		chunk("third", "d", "vpn setup"),
	}
	hits := Search("vpn", corpus, 3)
	got := strings.Join(ids(hits), ",")
	if got != "first,second,third" {
		t.Errorf("tied hits reordered: %s", got)
	}
}

func TestRanker_ParallelMatchesSequential(t *testing.T) {
	words := []string{"account", "billing", "invoice", "password", "reset", "shipping", "order", "refund", "login", "email"}
	var corpus []models.Chunk
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := 0; j < 5+i%17; j++ {
			b.WriteString(words[(i*7+j*3)%len(words)])
			b.WriteByte(' ')
		}
		corpus = append(corpus, chunk(fmt.Sprintf("c%d", i), "d", b.String()))
	}

	sequential := New(WithParallelism(1)).Search("password refund order", corpus, 50)
	parallel := New(WithParallelism(8), withThreshold(10)).Search("password refund order", corpus, 50)

	if len(sequential) != len(parallel) {
		t.Fatalf("length mismatch: %d vs %d", len(sequential), len(parallel))
	}
	for i := range sequential {
		if sequential[i].Chunk.ID != parallel[i].Chunk.ID || sequential[i].Score != parallel[i].Score {
			t.Errorf("hit %d differs: %+v vs %+v", i, sequential[i], parallel[i])
		}
	}
}

func TestIDF(t *testing.T) {
	tests := []struct {
		n, df int
		want  float64
	}{
		{1, 1, math.Log(0.5/1.5 + 1)},
		{10, 1, math.Log(9.5/1.5 + 1)},
		{10, 10, math.Log(0.5/10.5 + 1)},
	}
	for _, tt := range tests {
		if got := idf(tt.n, tt.df); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("idf(%d, %d) = %v, want %v", tt.n, tt.df, got, tt.want)
		}
		if idf(tt.n, tt.df) <= 0 {
			t.Errorf("idf(%d, %d) should be positive", tt.n, tt.df)
		}
	}
}

func TestTFNorm(t *testing.T) {
	// At average length the normalization reduces to tf(k1+1)/(tf+k1).
	if got, want := tfNorm(3, 10, 10), 3*(K1+1)/(3+K1); math.Abs(got-want) > 1e-12 {
		t.Errorf("tfNorm at avg length = %v, want %v", got, want)
	}
	if tfNorm(1, 5, 10) <= tfNorm(1, 20, 10) {
		t.Error("shorter chunks should score higher for the same tf")
	}
	if tfNorm(10, 10, 10) >= K1+1 {
		t.Error("tfNorm should saturate below k1+1")
	}
}
