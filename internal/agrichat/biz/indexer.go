package biz

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/agrichat/internal/agrichat/metrics"
	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/pkg/llm"
	ragopts "github.com/kart-io/agrichat/pkg/options/rag"
)

// Indexer 负责构建或加载知识库索引。
// 已有持久化索引时直接加载，否则执行完整的摄取、切分、向量化流程。
type Indexer struct {
	ingester *Ingester
	chunker  *Chunker
	embedder llm.EmbeddingProvider
	store    store.VectorStore

	batchSize int
	workers   int
}

// NewIndexer creates an indexer over the given embedding provider and store.
func NewIndexer(opts *ragopts.Options, embedder llm.EmbeddingProvider, vs store.VectorStore) *Indexer {
	return &Indexer{
		ingester:  NewIngester(opts),
		chunker:   NewChunker(opts),
		embedder:  embedder,
		store:     vs,
		batchSize: opts.EmbedBatchSize,
		workers:   opts.EmbedWorkers,
	}
}

// BuildOrLoad loads a previously persisted index when one exists,
// otherwise it builds the index from scratch. Building with no usable
// source material or a failing embedder is a fatal error.
func (idx *Indexer) BuildOrLoad(ctx context.Context) error {
	has, err := idx.store.HasData(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing index: %w", err)
	}
	if has {
		logger.Info("Existing index found, loading without re-ingestion")
		return idx.store.Load(ctx)
	}

	logger.Info("No existing index, building knowledge base from sources")

	docs := idx.ingester.IngestAll(ctx)
	if len(docs) == 0 {
		return fmt.Errorf("no documents could be ingested from any configured source")
	}

	chunks, err := idx.chunker.Split(docs)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("chunking produced no usable chunks")
	}
	logger.Infow("Chunked source documents", "documents", len(docs), "chunks", len(chunks))

	if err := idx.embedChunks(ctx, chunks); err != nil {
		return err
	}

	if err := idx.store.Insert(ctx, chunks); err != nil {
		return fmt.Errorf("failed to insert chunks into vector store: %w", err)
	}
	if err := idx.store.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}

	metrics.Get().RecordIndexed(len(docs), len(chunks))
	logger.Infow("Knowledge base index built", "documents", len(docs), "chunks", len(chunks))
	return nil
}

// embedChunks embeds all chunks in batches using a worker pool and
// writes the vectors back onto the chunks in place.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []store.Chunk) error {
	pool, err := ants.NewPool(idx.workers)
	if err != nil {
		return fmt.Errorf("failed to create embedding worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Content
			}

			vectors, err := idx.embedder.Embed(ctx, texts)
			if err == nil && len(vectors) != len(batch) {
				err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
		})
		if submitErr != nil {
			wg.Done()
			// In-flight batches still write into chunks, join them first
			wg.Wait()
			return fmt.Errorf("failed to submit embedding batch: %w", submitErr)
		}
	}

	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("failed to embed chunks: %w", firstErr)
	}
	return nil
}
