package chunker

import (
	"strings"

	"github.com/pargar-ir/qanun-ingest/internal/core"
)

const (
	DefaultMaxTokens = 900
	DefaultMinTokens = 700
	DefaultOverlap   = 100
)

// Span is one output chunk. OverlapPrev is the token count of the word span
// shared with the previous chunk; token counts are recorded rather than word
// counts because the two diverge for Persian text. The first chunk of a
// sequence always has OverlapPrev 0.
type Span struct {
	Text        string
	OverlapPrev int
}

// Chunker splits unit content into overlapping, token-bounded spans using
// whitespace word boundaries. MinTokens is accepted for sizing guidance only:
// an undersized trailing chunk is emitted as-is, never merged backwards.
type Chunker struct {
	tok       core.TokenCounter
	MaxTokens int
	MinTokens int
	Overlap   int // overlap size in words
}

func New(tok core.TokenCounter, maxTokens, minTokens, overlap int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{tok: tok, MaxTokens: maxTokens, MinTokens: minTokens, Overlap: overlap}
}

// TokenCount reports the token count of text under the chunker's counter.
func (c *Chunker) TokenCount(text string) int {
	return c.tok.Count(text)
}

// Split chunks text. Content at or under MaxTokens comes back verbatim as a
// single zero-overlap span. Longer content is accumulated word by word: when
// the next word would push past MaxTokens the chunk closes and the trailing
// Overlap words (or the whole chunk, if shorter) seed the next one. A word
// whose own token count exceeds MaxTokens still lands in some chunk; the
// budget is a target, not a hard guarantee against degenerate tokens.
func (c *Chunker) Split(text string) []Span {
	if c.tok.Count(text) <= c.MaxTokens {
		return []Span{{Text: text, OverlapPrev: 0}}
	}

	words := strings.Fields(text)
	var spans []Span
	var cur []string
	curTokens := 0
	pendingOverlap := 0 // token count of the seed carried into cur

	for i := 0; i < len(words); {
		w := words[i]
		wt := c.tok.Count(w)

		if curTokens+wt > c.MaxTokens && len(cur) > 0 {
			spans = append(spans, Span{
				Text:        strings.Join(cur, " "),
				OverlapPrev: pendingOverlap,
			})

			// Seed the next chunk with the trailing Overlap words.
			if len(cur) > c.Overlap {
				tail := cur[len(cur)-c.Overlap:]
				seed := make([]string, len(tail))
				copy(seed, tail)
				cur = seed
				curTokens = c.tok.Count(strings.Join(cur, " "))
				pendingOverlap = curTokens
			} else {
				cur = nil
				curTokens = 0
				pendingOverlap = 0
			}
			continue // re-attempt the same word against the fresh chunk
		}

		cur = append(cur, w)
		curTokens += wt
		i++
	}

	if len(cur) > 0 {
		spans = append(spans, Span{
			Text:        strings.Join(cur, " "),
			OverlapPrev: pendingOverlap,
		})
	}

	return spans
}
