package biz

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/pkg/llm"
)

func TestRewriterSkipsModelWithEmptyHistory(t *testing.T) {
	chat := &fakeChat{reply: "should not be used"}
	r := NewRewriter(chat)

	rewritten, err := r.Rewrite(context.Background(), "What is wheat rust?", nil)
	require.NoError(t, err)
	assert.Equal(t, "What is wheat rust?", rewritten)
	assert.Equal(t, int32(0), atomic.LoadInt32(&chat.calls))
}

func TestRewriterUsesHistory(t *testing.T) {
	chat := &fakeChat{reply: "What are the symptoms of wheat rust?"}
	r := NewRewriter(chat)

	history := []model.Message{
		{Role: model.RoleUser, Content: "Tell me about wheat rust."},
		{Role: model.RoleAssistant, Content: "Wheat rust is a fungal disease."},
	}

	rewritten, err := r.Rewrite(context.Background(), "What are its symptoms?", history)
	require.NoError(t, err)
	assert.Equal(t, "What are the symptoms of wheat rust?", rewritten)
	assert.Equal(t, int32(1), atomic.LoadInt32(&chat.calls))

	// System instruction first, history in order, question last
	require.Len(t, chat.lastMessages, 4)
	assert.Equal(t, llm.RoleSystem, chat.lastMessages[0].Role)
	assert.Equal(t, "Tell me about wheat rust.", chat.lastMessages[1].Content)
	assert.Equal(t, "What are its symptoms?", chat.lastMessages[3].Content)
}

func TestRewriterFallsBackOnEmptyReply(t *testing.T) {
	chat := &fakeChat{reply: "   "}
	r := NewRewriter(chat)

	history := []model.Message{{Role: model.RoleUser, Content: "earlier question"}}
	rewritten, err := r.Rewrite(context.Background(), "And in tomatoes?", history)
	require.NoError(t, err)
	assert.Equal(t, "And in tomatoes?", rewritten)
}

func TestRewriterPropagatesModelError(t *testing.T) {
	chat := &fakeChat{err: errBoom}
	r := NewRewriter(chat)

	history := []model.Message{{Role: model.RoleUser, Content: "earlier question"}}
	_, err := r.Rewrite(context.Background(), "And in tomatoes?", history)
	assert.Error(t, err)
}
