package keywords

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/seanblong/kbsearch/internal/tokenizer"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "frequency order",
			in:   "refund refund refund policy policy shipping",
			want: []string{"refund", "policy", "shipping"},
		},
		{
			name: "ties keep first occurrence",
			in:   "zebra apple mango apple zebra mango",
			want: []string{"zebra", "apple", "mango"},
		},
		{
			name: "stopwords removed",
			in:   "The dog and the cat. The dog barks.",
			want: []string{"dog", "cat", "barks"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract_Cap(t *testing.T) {
	var words []string
	for i := 0; i < 120; i++ {
		// word i appears (i%3)+1 times
		for j := 0; j <= i%3; j++ {
			words = append(words, fmt.Sprintf("term%d", i))
		}
	}
	text := strings.Join(words, " ")
	got := Extract(text)
	if len(got) != MaxKeywords {
		t.Fatalf("expected %d keywords, got %d", MaxKeywords, len(got))
	}

	tf, _ := tokenizer.Count(text)
	for i := 1; i < len(got); i++ {
		if tf[got[i-1]] < tf[got[i]] {
			t.Errorf("keywords not sorted by frequency at %d: %s(%d) before %s(%d)",
				i, got[i-1], tf[got[i-1]], got[i], tf[got[i]])
		}
	}
	for _, k := range got {
		if tokenizer.IsStopword(k) {
			t.Errorf("stopword %q in keywords", k)
		}
	}
	// 40 terms appear three times; they must all lead, in first-seen order.
	if got[0] != "term2" || got[1] != "term5" {
		t.Errorf("unexpected head %v", got[:2])
	}
}
