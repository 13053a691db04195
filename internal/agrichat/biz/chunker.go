package biz

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/internal/pkg/textutil"
	ragopts "github.com/kart-io/agrichat/pkg/options/rag"
)

// Chunker 使用递归字符切分把文档切成带重叠的文本块。
type Chunker struct {
	splitter      textsplitter.RecursiveCharacter
	minChunkChars int
}

// NewChunker creates a chunker with the configured size and overlap.
func NewChunker(opts *ragopts.Options) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(opts.ChunkSize),
			textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		),
		minChunkChars: opts.MinChunkChars,
	}
}

// Split splits documents into chunks, carrying source metadata onto
// each chunk. Chunks below the minimum length are dropped.
func (c *Chunker) Split(docs []model.Document) ([]store.Chunk, error) {
	chunks := make([]store.Chunk, 0, len(docs))

	for _, doc := range docs {
		pieces, err := c.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split document from %s: %w", doc.Source, err)
		}

		for i, piece := range pieces {
			piece = strings.TrimSpace(piece)
			if len(piece) < c.minChunkChars {
				continue
			}

			chunks = append(chunks, store.Chunk{
				ID:      chunkID(doc, i, piece),
				Source:  doc.Source,
				Title:   doc.Title,
				Page:    doc.Page,
				Content: piece,
			})
		}
	}

	return chunks, nil
}

// chunkID derives a stable identifier from the chunk origin and content,
// so re-ingesting identical sources yields identical ids.
func chunkID(doc model.Document, index int, content string) string {
	key := fmt.Sprintf("%s|%d|%d|%s", doc.Source, doc.Page, index, content)
	return textutil.HashString(key)[:32]
}
