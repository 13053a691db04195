package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/agrichat/pkg/component/milvus"
)

// Milvus collection field names.
const (
	fieldChunkID = "chunk_id"
	fieldSource  = "source"
	fieldTitle   = "title"
	fieldPage    = "page"
	fieldContent = "content"
)

// MilvusStore 是基于 Milvus 的向量存储后端，适合大规模知识库。
type MilvusStore struct {
	client     *milvus.Client
	collection string
	dim        int
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore creates a Milvus-backed store over an existing client.
func NewMilvusStore(client *milvus.Client, collection string, dim int) (*MilvusStore, error) {
	if client == nil {
		return nil, fmt.Errorf("milvus store: client is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("milvus store: collection name is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("milvus store: embedding dimension must be positive")
	}
	return &MilvusStore{
		client:     client,
		collection: collection,
		dim:        dim,
	}, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	return s.client.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "Agricultural disease knowledge base chunks",
		Dimension:   s.dim,
		MetaFields: []milvus.MetaField{
			{Name: fieldChunkID, DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: fieldSource, DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: fieldTitle, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: fieldPage, DataType: entity.FieldTypeInt64},
			{Name: fieldContent, DataType: entity.FieldTypeVarChar, MaxLen: 8192},
		},
	})
}

// HasData reports whether the collection exists and holds rows.
func (s *MilvusStore) HasData(ctx context.Context) (bool, error) {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	count, err := s.client.GetCollectionStats(ctx, s.collection)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Load ensures the collection exists and is loaded for searching.
func (s *MilvusStore) Load(ctx context.Context) error {
	return s.ensureCollection(ctx)
}

// Insert adds chunks with their embeddings to the collection.
func (s *MilvusStore) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	embeddings := make([][]float32, len(chunks))
	chunkIDs := make([]any, len(chunks))
	sources := make([]any, len(chunks))
	titles := make([]any, len(chunks))
	pages := make([]any, len(chunks))
	contents := make([]any, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dim {
			return fmt.Errorf("milvus store: chunk %s embedding dimension %d does not match %d", c.ID, len(c.Embedding), s.dim)
		}
		embeddings[i] = c.Embedding
		chunkIDs[i] = c.ID
		sources[i] = c.Source
		titles[i] = c.Title
		pages[i] = int64(c.Page)
		contents[i] = c.Content
	}

	_, err := s.client.Insert(ctx, s.collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata: map[string][]any{
			fieldChunkID: chunkIDs,
			fieldSource:  sources,
			fieldTitle:   titles,
			fieldPage:    pages,
			fieldContent: contents,
		},
	})
	if err != nil {
		return fmt.Errorf("milvus store: insert failed: %w", err)
	}
	return nil
}

// Search returns the topK most similar chunks to the query vector.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("milvus store: topK must be positive")
	}

	hits, err := s.client.Search(ctx, s.collection, vector, topK,
		[]string{fieldChunkID, fieldSource, fieldTitle, fieldPage, fieldContent})
	if err != nil {
		return nil, fmt.Errorf("milvus store: search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk := Chunk{}
		if v, ok := hit.Metadata[fieldChunkID].(string); ok {
			chunk.ID = v
		}
		if v, ok := hit.Metadata[fieldSource].(string); ok {
			chunk.Source = v
		}
		if v, ok := hit.Metadata[fieldTitle].(string); ok {
			chunk.Title = v
		}
		if v, ok := hit.Metadata[fieldPage].(int64); ok {
			chunk.Page = int(v)
		}
		if v, ok := hit.Metadata[fieldContent].(string); ok {
			chunk.Content = v
		}
		results = append(results, SearchResult{Chunk: chunk, Score: hit.Score})
	}
	return results, nil
}

// Persist is a no-op, inserts are flushed to Milvus as they happen.
func (s *MilvusStore) Persist(ctx context.Context) error {
	return nil
}

// Stats returns the row count of the collection.
func (s *MilvusStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	count, err := s.client.GetCollectionStats(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"backend":     "milvus",
		"chunk_count": count,
		"collection":  s.collection,
	}, nil
}

// Close closes the underlying Milvus client.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
