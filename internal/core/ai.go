package core

import "context"

// EmbeddingProvider produces fixed-dimension vectors for chunk texts.
// Implementations are constructed once at startup and injected; model load
// cost is paid at construction, not per call.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// TokenCounter counts tokens deterministically for a given text and model
// version. The same counter drives both the chunk-or-not decision and chunk
// sizing; mixing counters would break the max-token contract.
type TokenCounter interface {
	Count(text string) int
}
