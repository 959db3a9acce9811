package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter charges a fixed number of tokens per whitespace word, with
// optional per-word overrides. Join/split invariance makes expected values
// easy to compute by hand.
type wordCounter struct {
	perWord   int
	overrides map[string]int
}

func (c wordCounter) Count(text string) int {
	total := 0
	for _, w := range strings.Fields(text) {
		if n, ok := c.overrides[w]; ok {
			total += n
			continue
		}
		total += c.perWord
	}
	return total
}

func makeWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := New(wordCounter{perWord: 2}, 900, 700, 100)

	text := strings.Join(makeWords(450), " ") // exactly 900 tokens
	spans := c.Split(text)

	require.Len(t, spans, 1)
	assert.Equal(t, text, spans[0].Text)
	assert.Equal(t, 0, spans[0].OverlapPrev)
}

func TestSplit_1500TokenArticleSplitsInTwo(t *testing.T) {
	// 750 words at 2 tokens each = 1500 tokens; max 900, overlap 100 words.
	c := New(wordCounter{perWord: 2}, 900, 700, 100)

	words := makeWords(750)
	spans := c.Split(strings.Join(words, " "))

	require.Len(t, spans, 2)

	first := strings.Fields(spans[0].Text)
	second := strings.Fields(spans[1].Text)
	assert.Len(t, first, 450) // 900 tokens exactly
	assert.Equal(t, 0, spans[0].OverlapPrev)

	// Second chunk starts with the first chunk's trailing 100 words.
	assert.Equal(t, first[len(first)-100:], second[:100])
	assert.Equal(t, 200, spans[1].OverlapPrev) // 100 shared words at 2 tokens
}

func TestSplit_OverlapSpansMatchAcrossAllChunks(t *testing.T) {
	c := New(wordCounter{perWord: 1}, 10, 7, 3)

	spans := c.Split(strings.Join(makeWords(40), " "))
	require.Greater(t, len(spans), 2)

	assert.Equal(t, 0, spans[0].OverlapPrev)
	for i := 1; i < len(spans); i++ {
		prev := strings.Fields(spans[i-1].Text)
		cur := strings.Fields(spans[i].Text)

		shared := prev[len(prev)-3:]
		require.GreaterOrEqual(t, len(cur), 3)
		assert.Equal(t, shared, cur[:3], "chunk %d does not start with chunk %d's tail", i, i-1)
		assert.Equal(t, len(shared), spans[i].OverlapPrev, "chunk %d overlap token count", i)
	}
}

func TestSplit_TrailingChunkBelowMinTokensIsNotMerged(t *testing.T) {
	// MinTokens is advisory: a short tail stays its own chunk.
	c := New(wordCounter{perWord: 1}, 10, 7, 2)

	spans := c.Split(strings.Join(makeWords(21), " "))
	require.Greater(t, len(spans), 1)

	last := spans[len(spans)-1]
	lastTokens := wordCounter{perWord: 1}.Count(last.Text)
	assert.Less(t, lastTokens, c.MinTokens)
	assert.Equal(t, 2, last.OverlapPrev)

	// Every input word is covered despite the undersized tail.
	seen := map[string]bool{}
	for _, s := range spans {
		for _, w := range strings.Fields(s.Text) {
			seen[w] = true
		}
	}
	assert.Len(t, seen, 21)
}

func TestSplit_DegenerateLongToken(t *testing.T) {
	// One "word" costs more tokens than the whole budget; it must still be
	// emitted rather than looping or being dropped.
	counter := wordCounter{perWord: 1, overrides: map[string]int{"LONG": 50}}
	c := New(counter, 10, 7, 2)

	words := append(makeWords(12), "LONG")
	words = append(words, makeWords(5)...)
	spans := c.Split(strings.Join(words, " "))

	joined := strings.Join(spanTexts(spans), " ")
	assert.Contains(t, strings.Fields(joined), "LONG")
	for i, s := range spans {
		if i == 0 {
			assert.Equal(t, 0, s.OverlapPrev)
		}
		assert.NotEmpty(t, s.Text)
	}
}

func TestSplit_FirstChunkAlwaysZeroOverlap(t *testing.T) {
	c := New(wordCounter{perWord: 1}, 5, 3, 2)
	spans := c.Split(strings.Join(makeWords(17), " "))
	require.NotEmpty(t, spans)
	assert.Equal(t, 0, spans[0].OverlapPrev)
}

func spanTexts(spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}
