package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

// SearchService answers similarity queries over the chunk index: embed the
// query with the same model that embedded the chunks, then rank by cosine
// distance.
type SearchService struct {
	db       core.Store
	embedder core.EmbeddingProvider
}

func NewSearchService(db core.Store, embedder core.EmbeddingProvider) *SearchService {
	return &SearchService{db: db, embedder: embedder}
}

func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]models.ChunkMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}
	return s.db.SearchChunks(ctx, vectors[0], limit)
}
