package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/agrichat/internal/agrichat/metrics"
	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/pkg/llm"
)

// contextualizePrompt instructs the model to resolve references to the
// chat history into a standalone question.
const contextualizePrompt = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history. Do NOT answer the question, just reformulate it if needed and otherwise return it as is.`

// Rewriter 利用会话历史把指代性问题改写为独立问题。
type Rewriter struct {
	chat llm.ChatProvider
}

// NewRewriter creates a history aware query rewriter.
func NewRewriter(chat llm.ChatProvider) *Rewriter {
	return &Rewriter{chat: chat}
}

// Rewrite returns a standalone form of the question. With no history
// the question is returned unchanged and no model call is made.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []model.Message) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: contextualizePrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: llm.Role(msg.Role), Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	rewritten, err := r.chat.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to rewrite question: %w", err)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		// Fall back to the original question instead of querying with nothing
		return question, nil
	}

	metrics.Get().RecordRewrite()
	return rewritten, nil
}
