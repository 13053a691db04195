package biz

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/pkg/llm"
)

// fakeEmbedder returns deterministic vectors keyed on text length.
type fakeEmbedder struct {
	calls int32
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1, 0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }

// fakeChat replies with a fixed string and records the messages it saw.
type fakeChat struct {
	reply string
	err   error

	calls        int32
	lastMessages []llm.Message
}

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []llm.Message{}
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return f.Chat(ctx, messages)
}

func (f *fakeChat) Name() string { return "fake-chat" }

// fakeVectorStore is an in-memory store with instrumented call counts.
type fakeVectorStore struct {
	hasData bool
	chunks  []store.Chunk

	loadCalls    int
	insertCalls  int
	persistCalls int

	searchErr error
}

func (f *fakeVectorStore) HasData(ctx context.Context) (bool, error) {
	return f.hasData, nil
}

func (f *fakeVectorStore) Load(ctx context.Context) error {
	f.loadCalls++
	return nil
}

func (f *fakeVectorStore) Insert(ctx context.Context, chunks []store.Chunk) error {
	f.insertCalls++
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]store.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	results := make([]store.SearchResult, 0, topK)
	for i := range f.chunks {
		if len(results) == topK {
			break
		}
		results = append(results, store.SearchResult{Chunk: f.chunks[i], Score: 1 - float32(i)*0.1})
	}
	return results, nil
}

func (f *fakeVectorStore) Persist(ctx context.Context) error {
	f.persistCalls++
	return nil
}

func (f *fakeVectorStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"backend": "fake", "chunk_count": len(f.chunks)}, nil
}

func (f *fakeVectorStore) Close(ctx context.Context) error { return nil }

var errBoom = fmt.Errorf("boom")
