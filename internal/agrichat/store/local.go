package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kart-io/agrichat/pkg/utils/json"
	"github.com/kart-io/logger"
)

// snapshotFile is the index file name inside the persist directory.
const snapshotFile = "index.json"

// snapshot is the on-disk layout of a persisted index.
type snapshot struct {
	Chunks []Chunk `json:"chunks"`
}

// LocalStore 是基于内存扫描的本地向量存储，索引快照持久化为 JSON 文件。
// 适合几千个块规模的知识库，无需外部依赖。
type LocalStore struct {
	dir string

	mu     sync.RWMutex
	chunks []Chunk
}

var _ VectorStore = (*LocalStore)(nil)

// NewLocalStore creates a local store persisting under dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local store: persist directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local store: failed to create directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) snapshotPath() string {
	return filepath.Join(s.dir, snapshotFile)
}

// HasData reports whether a non-empty snapshot file exists on disk.
func (s *LocalStore) HasData(ctx context.Context) (bool, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("local store: failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warnw("Local index snapshot is corrupt, rebuilding", "path", s.snapshotPath(), "error", err)
		return false, nil
	}
	return len(snap.Chunks) > 0, nil
}

// Load loads the snapshot file into memory.
func (s *LocalStore) Load(ctx context.Context) error {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		return fmt.Errorf("local store: failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("local store: failed to decode snapshot: %w", err)
	}

	s.mu.Lock()
	s.chunks = snap.Chunks
	s.mu.Unlock()

	logger.Infow("Loaded local index snapshot", "path", s.snapshotPath(), "chunks", len(snap.Chunks))
	return nil
}

// Insert appends chunks to the in-memory index.
func (s *LocalStore) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("local store: chunk %s has no embedding", chunks[i].ID)
		}
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	s.mu.Unlock()
	return nil
}

// Search scans all chunks and returns the topK by cosine similarity.
func (s *LocalStore) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("local store: topK must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(s.chunks))
	for i := range s.chunks {
		score := cosineSimilarity(vector, s.chunks[i].Embedding)
		results = append(results, SearchResult{Chunk: s.chunks[i], Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Persist atomically writes the in-memory index to the snapshot file.
func (s *LocalStore) Persist(ctx context.Context) error {
	s.mu.RLock()
	snap := snapshot{Chunks: s.chunks}
	s.mu.RUnlock()

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("local store: failed to encode snapshot: %w", err)
	}

	tmp := s.snapshotPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local store: failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath()); err != nil {
		return fmt.Errorf("local store: failed to replace snapshot: %w", err)
	}

	logger.Infow("Persisted local index snapshot", "path", s.snapshotPath(), "chunks", len(snap.Chunks))
	return nil
}

// Stats returns the chunk count and snapshot location.
func (s *LocalStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	count := len(s.chunks)
	s.mu.RUnlock()

	return map[string]interface{}{
		"backend":     "local",
		"chunk_count": count,
		"persist_dir": s.dir,
	}, nil
}

// Close is a no-op for the local store.
func (s *LocalStore) Close(ctx context.Context) error {
	return nil
}

// cosineSimilarity returns the cosine similarity of two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
