package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/pargar-ir/qanun-ingest/internal/core"
)

// TiktokenCounter wraps a BPE encoding for deterministic token counting over
// mixed Persian/Latin text.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (e.g. "cl100k_base"). A missing
// or unloadable encoding is a configuration error: the caller must fail fast
// rather than fall back to word counting.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (t *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

var _ core.TokenCounter = (*TiktokenCounter)(nil)
