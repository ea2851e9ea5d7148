package sentence

import (
	"sort"
	"strings"
)

// Sentence is a token-aligned L1 sentence with its L2 glosses.
type Sentence struct {
	L1 []string
	L2 []string
	// Spans are the constituents of a binary bracketing of the sentence. When
	// nil, Constituents falls back to a balanced binary split.
	Spans []Span
}

func (s Sentence) Len() int { return len(s.L1) }

// Constituents returns the bracketing spans ordered by start then length.
func (s Sentence) Constituents() []Span {
	var spans []Span
	if s.Spans != nil {
		spans = append(spans, s.Spans...)
	} else {
		spans = balancedSpans(0, s.Len(), nil)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Len() < spans[j].Len()
	})
	return spans
}

func balancedSpans(start, end int, spans []Span) []Span {
	if end-start <= 0 {
		return spans
	}
	spans = append(spans, Span{Start: start, End: end})
	if end-start == 1 {
		return spans
	}
	mid := (start + end + 1) / 2
	spans = balancedSpans(start, mid, spans)
	return balancedSpans(mid, end, spans)
}

// Corpus is the collection of sentences searched jointly.
type Corpus struct {
	Sentences []Sentence
}

// Lengths returns the length of every sentence.
func (c *Corpus) Lengths() []int {
	lengths := make([]int, len(c.Sentences))
	for i, s := range c.Sentences {
		lengths[i] = s.Len()
	}
	return lengths
}

// Tokens returns the number of word positions in the corpus.
func (c *Corpus) Tokens() int {
	var n int
	for _, s := range c.Sentences {
		n += s.Len()
	}
	return n
}

// Render writes sentence i of st as text, passing every L2 token through mark.
func (c *Corpus) Render(st State, i int, mark func(string) string) string {
	s := c.Sentences[i]
	words := make([]string, s.Len())
	for pos := range s.L1 {
		if st.IsSwapped(i, pos) {
			words[pos] = mark(s.L2[pos])
		} else {
			words[pos] = s.L1[pos]
		}
	}
	return strings.Join(words, " ")
}
