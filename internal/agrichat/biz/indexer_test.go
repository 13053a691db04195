package biz

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/agrichat/internal/agrichat/store"
)

func TestIndexerLoadsExistingIndexWithoutEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{}
	vs := &fakeVectorStore{hasData: true}

	idx := NewIndexer(testRAGOptions(), embedder, vs)
	require.NoError(t, idx.BuildOrLoad(context.Background()))

	assert.Equal(t, 1, vs.loadCalls)
	assert.Equal(t, 0, vs.insertCalls)
	assert.Equal(t, int32(0), atomic.LoadInt32(&embedder.calls), "loading an existing index must not embed anything")
}

func TestEmbedChunksAssignsVectors(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx := NewIndexer(testRAGOptions(), embedder, &fakeVectorStore{})
	idx.batchSize = 2
	idx.workers = 2

	chunks := []store.Chunk{
		{ID: "a", Content: "first chunk"},
		{ID: "b", Content: "second chunk"},
		{ID: "c", Content: "third chunk"},
		{ID: "d", Content: "fourth chunk"},
		{ID: "e", Content: "fifth chunk"},
	}

	require.NoError(t, idx.embedChunks(context.Background(), chunks))

	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Embedding, "chunk %s should have an embedding", chunk.ID)
	}
	// 5 chunks in batches of 2 means 3 embed calls
	assert.Equal(t, int32(3), atomic.LoadInt32(&embedder.calls))
}

// trackingEmbedder counts batches currently being embedded and fails
// the first batch it sees.
type trackingEmbedder struct {
	inflight int32
	calls    int32
}

func (e *trackingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&e.inflight, 1)
	defer atomic.AddInt32(&e.inflight, -1)

	time.Sleep(10 * time.Millisecond)
	if atomic.AddInt32(&e.calls, 1) == 1 {
		return nil, errBoom
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (e *trackingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *trackingEmbedder) Name() string { return "tracking-embedder" }

func TestEmbedChunksJoinsBatchesBeforeReturning(t *testing.T) {
	embedder := &trackingEmbedder{}
	idx := NewIndexer(testRAGOptions(), embedder, &fakeVectorStore{})
	idx.batchSize = 1
	idx.workers = 4

	chunks := make([]store.Chunk, 12)
	for i := range chunks {
		chunks[i] = store.Chunk{ID: string(rune('a' + i)), Content: "chunk content"}
	}

	err := idx.embedChunks(context.Background(), chunks)
	require.Error(t, err)

	// No batch may still be writing into chunks once the call returns
	assert.Equal(t, int32(0), atomic.LoadInt32(&embedder.inflight))
	assert.Equal(t, int32(12), atomic.LoadInt32(&embedder.calls),
		"all submitted batches ran to completion before the error surfaced")
}

func TestEmbedChunksPropagatesEmbedderError(t *testing.T) {
	embedder := &fakeEmbedder{err: errBoom}
	idx := NewIndexer(testRAGOptions(), embedder, &fakeVectorStore{})

	chunks := []store.Chunk{{ID: "a", Content: "some content"}}
	err := idx.embedChunks(context.Background(), chunks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed chunks")
}
