package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/agrichat/internal/agrichat/metrics"
	"github.com/kart-io/agrichat/internal/agrichat/session"
	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/internal/model"
)

// greetingAnswer is the canned reply for bare greetings.
const greetingAnswer = "Hello! I'm an agricultural disease expert assistant. How can I help you with information about crop diseases, pests, or agricultural management today?"

// greetings are matched case-insensitively after trimming whitespace.
var greetings = map[string]struct{}{
	"hi":        {},
	"hello":     {},
	"hey":       {},
	"greetings": {},
}

// Service 定义问答服务接口。
type Service interface {
	// Ask answers a question within a session and records the turn.
	Ask(ctx context.Context, sessionID, question string) (string, error)

	// NewSession mints a fresh session identifier.
	NewSession(ctx context.Context) (string, error)

	// DeleteSession removes a session and its history.
	DeleteSession(ctx context.Context, sessionID string) error

	// History returns the ordered history of a session.
	History(ctx context.Context, sessionID string) ([]model.Message, error)

	// ListSessions returns the identifiers of all known sessions.
	ListSessions(ctx context.Context) ([]string, error)

	// Stats returns pipeline and storage statistics.
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// service 把改写、检索、生成与会话管理编排为完整的问答流程。
type service struct {
	rewriter  *Rewriter
	retriever *Retriever
	generator *Generator
	sessions  session.Store
	vectors   store.VectorStore
	cache     *RetrievalCache // nil disables retrieval caching
}

var _ Service = (*service)(nil)

// NewService creates the question answering service.
func NewService(rewriter *Rewriter, retriever *Retriever, generator *Generator,
	sessions session.Store, vectors store.VectorStore, cache *RetrievalCache) Service {
	return &service{
		rewriter:  rewriter,
		retriever: retriever,
		generator: generator,
		sessions:  sessions,
		vectors:   vectors,
		cache:     cache,
	}
}

// Ask runs one conversational turn. The history is only appended to
// after the answer is produced, so a failed turn leaves no trace.
func (s *service) Ask(ctx context.Context, sessionID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	if sessionID == "" {
		return "", fmt.Errorf("session id must not be empty")
	}

	m := metrics.Get()

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		m.RecordError()
		return "", fmt.Errorf("failed to load session history: %w", err)
	}

	if _, ok := greetings[strings.ToLower(question)]; ok {
		if err := s.appendTurn(ctx, sessionID, question, greetingAnswer); err != nil {
			m.RecordError()
			return "", err
		}
		m.RecordGreeting()
		m.RecordTurn()
		return greetingAnswer, nil
	}

	rewritten, err := s.rewriter.Rewrite(ctx, question, history)
	if err != nil {
		m.RecordError()
		return "", err
	}
	if rewritten != question {
		logger.Debugw("Rewrote question", "session_id", sessionID, "rewritten", rewritten)
	}

	results, err := s.retrieve(ctx, rewritten)
	if err != nil {
		m.RecordError()
		return "", err
	}

	// The rewritten form is for retrieval only, the model answers the
	// question as the user asked it
	answer, err := s.generator.Generate(ctx, question, history, results)
	if err != nil {
		m.RecordError()
		return "", err
	}

	if err := s.appendTurn(ctx, sessionID, question, answer); err != nil {
		m.RecordError()
		return "", err
	}

	m.RecordTurn()
	return answer, nil
}

// retrieve fetches context chunks, going through the cache when enabled.
// Cache failures degrade to a direct retrieval.
func (s *service) retrieve(ctx context.Context, query string) ([]store.SearchResult, error) {
	m := metrics.Get()

	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, query)
		if err != nil {
			logger.Warnw("Retrieval cache lookup failed, falling back to search", "error", err)
		} else if hit {
			m.RecordCacheHit()
			return cached, nil
		} else {
			m.RecordCacheMiss()
		}
	}

	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, query, results); err != nil {
			logger.Warnw("Failed to populate retrieval cache", "error", err)
		}
	}
	return results, nil
}

func (s *service) appendTurn(ctx context.Context, sessionID, question, answer string) error {
	err := s.sessions.Append(ctx, sessionID,
		model.Message{Role: model.RoleUser, Content: question},
		model.Message{Role: model.RoleAssistant, Content: answer},
	)
	if err != nil {
		return fmt.Errorf("failed to append turn to session history: %w", err)
	}
	return nil
}

// NewSession mints a session identifier. The session itself is created
// lazily on first use.
func (s *service) NewSession(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

// DeleteSession removes the session. Unknown sessions delete cleanly.
func (s *service) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	return s.sessions.Delete(ctx, sessionID)
}

// History returns the ordered history of a session.
func (s *service) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id must not be empty")
	}
	return s.sessions.History(ctx, sessionID)
}

// ListSessions returns all known session identifiers.
func (s *service) ListSessions(ctx context.Context) ([]string, error) {
	return s.sessions.ListIDs(ctx)
}

// Stats merges pipeline counters with vector store statistics.
func (s *service) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := metrics.Get().Stats()

	if storeStats, err := s.vectors.Stats(ctx); err == nil {
		stats["store"] = storeStats
	} else {
		logger.Warnw("Failed to collect vector store stats", "error", err)
	}

	if s.cache != nil {
		if cacheStats, err := s.cache.Stats(ctx); err == nil {
			stats["cache"] = cacheStats
		}
	}

	if ids, err := s.sessions.ListIDs(ctx); err == nil {
		stats["sessions"] = len(ids)
	}

	return stats, nil
}
