package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/agrichat/internal/agrichat/metrics"
	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/pkg/llm"
)

// noContextAnswer is returned when retrieval finds nothing to ground on.
const noContextAnswer = "I couldn't find any relevant information in the knowledge base to answer your question. Please try rephrasing, or ask about crop diseases, pests, or agricultural management."

// answerSystemPrompt grounds the model strictly in retrieved context.
const answerSystemPrompt = `You are an expert assistant for agricultural diseases. Answer the question using ONLY the retrieved context below. If the context does not contain the information needed, say you don't have enough information rather than guessing. If the input is out of context, like a casual greeting, respond in kind with a brief friendly greeting instead of consulting the context. Keep answers concise and practical.

Retrieved context:
%s`

// Generator 基于检索到的上下文与会话历史生成回答。
type Generator struct {
	chat llm.ChatProvider
}

// NewGenerator creates an answer generator over the chat provider.
func NewGenerator(chat llm.ChatProvider) *Generator {
	return &Generator{chat: chat}
}

// Generate produces a grounded answer. With no retrieved context it
// returns a fixed reply without calling the model.
func (g *Generator) Generate(ctx context.Context, question string, history []model.Message, results []store.SearchResult) (string, error) {
	if len(results) == 0 {
		return noContextAnswer, nil
	}

	systemPrompt := fmt.Sprintf(answerSystemPrompt, formatContext(results))

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: llm.Role(msg.Role), Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	start := time.Now()
	answer, err := g.chat.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	metrics.Get().RecordChatCall(float64(time.Since(start).Milliseconds()))

	return strings.TrimSpace(answer), nil
}

// formatContext renders retrieved chunks as a numbered context block.
func formatContext(results []store.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		origin := r.Chunk.Source
		if r.Chunk.Page > 0 {
			origin = fmt.Sprintf("%s (page %d)", origin, r.Chunk.Page)
		}
		fmt.Fprintf(&b, "[%d] From %s\n%s\n\n", i+1, origin, r.Chunk.Content)
	}
	return strings.TrimSpace(b.String())
}
