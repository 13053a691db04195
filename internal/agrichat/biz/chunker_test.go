package biz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/agrichat/internal/model"
	ragopts "github.com/kart-io/agrichat/pkg/options/rag"
)

func testRAGOptions() *ragopts.Options {
	opts := ragopts.NewOptions()
	opts.ChunkSize = 100
	opts.ChunkOverlap = 20
	opts.MinChunkChars = 5
	return opts
}

func TestChunkerSplitShortDocument(t *testing.T) {
	c := NewChunker(testRAGOptions())

	docs := []model.Document{
		{Source: "https://example.com", Content: "Late blight is a serious potato disease."},
	}

	chunks, err := c.Split(docs)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "https://example.com", chunks[0].Source)
	assert.Equal(t, "Late blight is a serious potato disease.", chunks[0].Content)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestChunkerSplitLongDocument(t *testing.T) {
	c := NewChunker(testRAGOptions())

	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("Fungal spores spread rapidly in humid conditions. ")
	}
	docs := []model.Document{
		{Source: "https://example.com/long", Content: b.String()},
	}

	chunks, err := c.Split(docs)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 120, "chunk should not greatly exceed the configured size")
		assert.Equal(t, "https://example.com/long", chunk.Source)
	}
}

func TestChunkerAdjacentChunksOverlap(t *testing.T) {
	opts := testRAGOptions()
	c := NewChunker(opts)

	// Unique words so a shared region can only come from the overlap
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "word%03d ", i)
	}
	docs := []model.Document{
		{Source: "https://example.com/overlap", Content: strings.TrimSpace(b.String())},
	}

	chunks, err := c.Split(docs)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		shared := sharedOverlap(chunks[i].Content, chunks[i+1].Content)
		assert.GreaterOrEqual(t, shared, opts.ChunkOverlap/2,
			"chunks %d and %d share only %d characters", i, i+1, shared)
	}
}

// sharedOverlap returns the longest k where the suffix of a equals the
// prefix of b.
func sharedOverlap(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(a, b[:k]) {
			return k
		}
	}
	return 0
}

func TestChunkerCarriesMetadata(t *testing.T) {
	c := NewChunker(testRAGOptions())

	docs := []model.Document{
		{Source: "https://example.com/guide.pdf", Title: "Pest Guide", Page: 3, Content: "Aphid infestations weaken young plants."},
	}

	chunks, err := c.Split(docs)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Pest Guide", chunks[0].Title)
	assert.Equal(t, 3, chunks[0].Page)
}

func TestChunkerDropsTinyChunks(t *testing.T) {
	opts := testRAGOptions()
	opts.MinChunkChars = 50
	c := NewChunker(opts)

	docs := []model.Document{
		{Source: "https://example.com", Content: "Too short."},
	}

	chunks, err := c.Split(docs)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkerStableIDs(t *testing.T) {
	c := NewChunker(testRAGOptions())

	docs := []model.Document{
		{Source: "https://example.com", Content: "Rust fungi require living host tissue to survive."},
	}

	first, err := c.Split(docs)
	require.NoError(t, err)
	second, err := c.Split(docs)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}
