package biz

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/agrichat/internal/agrichat/session"
	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/internal/model"
)

type pipelineFixture struct {
	svc      Service
	chat     *fakeChat
	embedder *fakeEmbedder
	vectors  *fakeVectorStore
	sessions *session.MemoryStore
}

func newPipelineFixture(reply string) *pipelineFixture {
	chat := &fakeChat{reply: reply}
	embedder := &fakeEmbedder{}
	vectors := &fakeVectorStore{
		chunks: []store.Chunk{
			{ID: "c1", Source: "https://example.com", Content: "Late blight thrives in cool wet weather.", Embedding: []float32{1, 0, 0}},
		},
	}
	sessions := session.NewMemoryStore()

	svc := NewService(
		NewRewriter(chat),
		NewRetriever(embedder, vectors, 4),
		NewGenerator(chat),
		sessions,
		vectors,
		nil,
	)

	return &pipelineFixture{
		svc:      svc,
		chat:     chat,
		embedder: embedder,
		vectors:  vectors,
		sessions: sessions,
	}
}

func TestAskGreetingShortcut(t *testing.T) {
	f := newPipelineFixture("should not be used")
	ctx := context.Background()

	for _, greeting := range []string{"hi", "Hello", "  HEY  ", "Greetings"} {
		answer, err := f.svc.Ask(ctx, "s1", greeting)
		require.NoError(t, err)
		assert.Equal(t, greetingAnswer, answer)
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&f.chat.calls), "greetings must not reach the model")
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.embedder.calls), "greetings must not trigger retrieval")

	history, err := f.svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 8, "each greeting turn still records user and assistant messages")
}

func TestAskAnswersFromKnowledgeBase(t *testing.T) {
	f := newPipelineFixture("Late blight spreads fastest in cool wet weather.")
	ctx := context.Background()

	answer, err := f.svc.Ask(ctx, "s1", "When does late blight spread fastest?")
	require.NoError(t, err)
	assert.Equal(t, "Late blight spreads fastest in cool wet weather.", answer)

	// Empty history skips the rewrite, so only the generation call happens
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.chat.calls))

	history, err := f.svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "When does late blight spread fastest?", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
}

func TestAskRewritesFollowUpQuestions(t *testing.T) {
	f := newPipelineFixture("Cool wet weather favors the disease.")
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, "s1", "Tell me about late blight.")
	require.NoError(t, err)

	callsAfterFirst := atomic.LoadInt32(&f.chat.calls)

	_, err = f.svc.Ask(ctx, "s1", "What weather favors it?")
	require.NoError(t, err)

	// The follow-up needs both a rewrite call and a generation call
	assert.Equal(t, callsAfterFirst+2, atomic.LoadInt32(&f.chat.calls))
}

func TestAskSynthesizesAgainstOriginalQuestion(t *testing.T) {
	f := newPipelineFixture("What weather favors late blight?")
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, "s1", "Tell me about late blight.")
	require.NoError(t, err)

	_, err = f.svc.Ask(ctx, "s1", "What weather favors it?")
	require.NoError(t, err)

	// The rewritten form drives retrieval only. The last call to the
	// model is the generation, and its user message must be the turn
	// as the user typed it, not the rewriter's output.
	require.NotEmpty(t, f.chat.lastMessages)
	last := f.chat.lastMessages[len(f.chat.lastMessages)-1]
	assert.Equal(t, "What weather favors it?", last.Content)
}

func TestAskFailureLeavesHistoryUntouched(t *testing.T) {
	f := newPipelineFixture("unused")
	f.chat.err = errBoom
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, "s1", "When does late blight spread fastest?")
	require.Error(t, err)

	history, err := f.svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history, "a failed turn must not be recorded")
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newPipelineFixture("unused")

	_, err := f.svc.Ask(context.Background(), "s1", "   ")
	assert.Error(t, err)

	_, err = f.svc.Ask(context.Background(), "", "valid question")
	assert.Error(t, err)
}

func TestAskRetrievalFailure(t *testing.T) {
	f := newPipelineFixture("unused")
	f.vectors.searchErr = errBoom

	_, err := f.svc.Ask(context.Background(), "s1", "When does late blight spread fastest?")
	require.Error(t, err)

	history, err := f.svc.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestNewSessionMintsUniqueIDs(t *testing.T) {
	f := newPipelineFixture("unused")

	id1, err := f.svc.NewSession(context.Background())
	require.NoError(t, err)
	id2, err := f.svc.NewSession(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestDeleteSession(t *testing.T) {
	f := newPipelineFixture("An answer.")
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, "s1", "hello")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(ctx, "s1"))

	history, err := f.svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Deleting a session that never existed succeeds
	require.NoError(t, f.svc.DeleteSession(ctx, "never-existed"))
}

func TestListSessions(t *testing.T) {
	f := newPipelineFixture("An answer.")
	ctx := context.Background()

	ids, err := f.svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = f.svc.Ask(ctx, "s1", "hello")
	require.NoError(t, err)
	_, err = f.svc.Ask(ctx, "s2", "hi")
	require.NoError(t, err)

	ids, err = f.svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}

func TestStats(t *testing.T) {
	f := newPipelineFixture("An answer.")
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, "s1", "When does late blight spread fastest?")
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Contains(t, stats, "turns_total")
	assert.Contains(t, stats, "store")
	assert.Equal(t, 1, stats["sessions"])
}
