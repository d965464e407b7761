package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty",
			in:   "",
			want: []string{},
		},
		{
			name: "lowercases and strips punctuation",
			in:   "Reset your PASSWORD, then log-in again!",
			want: []string{"reset", "password", "log"},
		},
		{
			name: "drops single characters",
			in:   "a b c d2 x",
			want: []string{"d2"},
		},
		{
			name: "drops stopwords",
			in:   "The quick brown fox jumps over the lazy dog",
			want: []string{"quick", "brown", "fox", "jumps", "lazy", "dog"},
		},
		{
			name: "digits are terms",
			in:   "Error 404 on port 8080",
			want: []string{"error", "404", "port", "8080"},
		},
		{
			name: "non ascii letters split words",
			in:   "café crème",
			want: []string{"caf", "cr", "me"},
		},
		{
			name: "only stopwords",
			in:   "what is the and of it",
			want: []string{},
		},
		{
			name: "underscores and newlines separate",
			in:   "snake_case\nnext\tline",
			want: []string{"snake", "case", "next", "line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	inputs := []string{
		"The quick brown fox jumps over the lazy dog. The dog barks.",
		"How do I reset my password? Go to Settings > Security.",
		"Refunds are issued within 5-7 business days!!!",
		"",
	}
	for _, in := range inputs {
		first := Tokenize(in)
		second := Tokenize(strings.Join(first, " "))
		if len(first) == 0 && len(second) == 0 {
			continue
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("re-tokenizing %q: got %v, want %v", in, second, first)
		}
	}
}

func TestStopwordsNeverEmitted(t *testing.T) {
	var all []string
	for w := range stopwords {
		all = append(all, w)
	}
	if got := Tokenize(strings.Join(all, " ")); len(got) != 0 {
		t.Errorf("expected no terms from stopword list, got %v", got)
	}
	if n := len(stopwords); n < 120 || n > 140 {
		t.Errorf("stopword set has %d entries, expected roughly 130", n)
	}
}

func TestIsStopword(t *testing.T) {
	for _, w := range []string{"the", "and", "whom", "themselves"} {
		if !IsStopword(w) {
			t.Errorf("IsStopword(%q) = false, want true", w)
		}
	}
	for _, w := range []string{"password", "refund", "dog"} {
		if IsStopword(w) {
			t.Errorf("IsStopword(%q) = true, want false", w)
		}
	}
}

func TestCount(t *testing.T) {
	tf, n := Count("dog dog cat, the dog")
	if n != 4 {
		t.Errorf("Count length = %d, want 4", n)
	}
	if tf["dog"] != 3 || tf["cat"] != 1 {
		t.Errorf("Count frequencies = %v", tf)
	}
	if _, ok := tf["the"]; ok {
		t.Error("stopword counted")
	}
}
