package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []Chunk {
	return []Chunk{
		{
			ID:        "c1",
			Source:    "https://example.com/diseases",
			Content:   "Late blight causes dark lesions on potato leaves.",
			Embedding: []float32{1, 0, 0},
		},
		{
			ID:        "c2",
			Source:    "https://example.com/diseases",
			Content:   "Powdery mildew appears as white powder on leaf surfaces.",
			Embedding: []float32{0, 1, 0},
		},
		{
			ID:        "c3",
			Source:    "https://example.com/pests.pdf",
			Page:      2,
			Content:   "Aphids transmit viral diseases between plants.",
			Embedding: []float32{0.9, 0.1, 0},
		},
	}
}

func TestLocalStoreInsertAndSearch(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.Insert(context.Background(), testChunks()))

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "c3", results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLocalStoreSearchEmpty(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocalStoreSearchTopKLargerThanIndex(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Insert(context.Background(), testChunks()))

	results, err := s.Search(context.Background(), []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "c2", results[0].Chunk.ID)
}

func TestLocalStoreInsertRejectsMissingEmbedding(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = s.Insert(context.Background(), []Chunk{{ID: "bad", Content: "no vector"}})
	assert.Error(t, err)
}

func TestLocalStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), testChunks()))
	require.NoError(t, s.Persist(context.Background()))

	// A fresh store sees the persisted data
	s2, err := NewLocalStore(dir)
	require.NoError(t, err)

	has, err := s2.HasData(context.Background())
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s2.Load(context.Background()))

	results, err := s2.Search(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)

	stats, err := s2.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats["chunk_count"])
}

func TestLocalStoreHasDataMissingFile(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	has, err := s.HasData(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLocalStoreHasDataCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotFile), []byte("{not json"), 0o644))

	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	has, err := s.HasData(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}
