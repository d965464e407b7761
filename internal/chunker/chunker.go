// Package chunker splits document text into bounded passages, preferring
// sentence boundaries.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSize is the target passage length in characters.
const DefaultSize = 500

// Passage is one flushed chunk of text and its 0-based position.
type Passage struct {
	Content  string
	Position int
}

// Chunker accumulates sentences into passages of roughly Size characters.
type Chunker struct {
	size int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the target passage length. Non-positive values keep the
// default.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the target passage length.
func (c *Chunker) Size() int { return c.size }

// Split cuts text into passages. A buffer is flushed when appending the next
// sentence would push it past the target size; a single sentence longer than
// the target is kept whole. Empty input yields no passages.
func (c *Chunker) Split(text string) []Passage {
	var (
		out     []Passage
		buf     strings.Builder
		bufLen  int
		pending bool // buf holds non-whitespace text
	)

	flush := func() {
		if pending {
			out = append(out, Passage{Content: strings.TrimSpace(buf.String()), Position: len(out)})
		}
		buf.Reset()
		bufLen = 0
		pending = false
	}

	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		if bufLen+n > c.size && pending {
			flush()
		}
		buf.WriteString(s)
		buf.WriteByte(' ')
		bufLen += n + 1
		if !pending && strings.TrimSpace(s) != "" {
			pending = true
		}
	}
	flush()
	return out
}

// Sentences splits text after '.', '!', '?' or '\n' wherever one of them is
// followed by whitespace. The whitespace run between sentences is dropped.
// CRLF line endings are normalized first.
func Sentences(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		next := i + w
		if isTerminator(r) && next < len(text) {
			nr, _ := utf8.DecodeRuneInString(text[next:])
			if unicode.IsSpace(nr) {
				out = append(out, text[start:next])
				j := next
				for j < len(text) {
					sr, sw := utf8.DecodeRuneInString(text[j:])
					if !unicode.IsSpace(sr) {
						break
					}
					j += sw
				}
				start = j
				i = j
				continue
			}
		}
		i = next
	}
	out = append(out, text[start:])
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}
