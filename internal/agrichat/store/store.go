// Package store provides vector storage backends for the knowledge base.
package store

import "context"

// Chunk 是知识库中的一个文本块，携带来源元数据与向量。
type Chunk struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title,omitempty"`
	Page      int       `json:"page,omitempty"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult 是一次相似度检索命中的文本块与得分。
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// VectorStore 定义向量存储后端接口。
type VectorStore interface {
	// HasData reports whether a previously persisted index exists and
	// contains at least one chunk.
	HasData(ctx context.Context) (bool, error)

	// Load loads a previously persisted index into the store.
	Load(ctx context.Context) error

	// Insert adds chunks with their embeddings to the store.
	Insert(ctx context.Context, chunks []Chunk) error

	// Search returns the topK most similar chunks to the query vector.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)

	// Persist writes the current index to durable storage.
	Persist(ctx context.Context) error

	// Stats returns backend statistics such as the chunk count.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
