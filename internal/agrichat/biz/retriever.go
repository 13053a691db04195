package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/agrichat/internal/agrichat/metrics"
	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/pkg/llm"
)

// Retriever 对查询向量化后在向量存储中检索最相似的文本块。
type Retriever struct {
	embedder llm.EmbeddingProvider
	store    store.VectorStore
	topK     int
}

// NewRetriever creates a retriever over the embedding provider and store.
func NewRetriever(embedder llm.EmbeddingProvider, vs store.VectorStore, topK int) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    vs,
		topK:     topK,
	}
}

// Retrieve embeds the query and returns the topK most similar chunks.
// An empty index yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]store.SearchResult, error) {
	start := time.Now()

	vector, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	metrics.Get().RecordRetrieval(float64(time.Since(start).Milliseconds()))
	return results, nil
}
