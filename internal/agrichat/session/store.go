// Package session manages per-conversation chat histories.
package session

import (
	"context"
	"sync"

	"github.com/kart-io/agrichat/internal/model"
)

// Store 定义会话历史存储接口。会话在首次写入或读取时隐式创建，
// 删除不存在的会话不是错误。
type Store interface {
	// History returns the ordered history of a session. Unknown
	// sessions return an empty history.
	History(ctx context.Context, sessionID string) ([]model.Message, error)

	// Append appends messages to a session history in order.
	Append(ctx context.Context, sessionID string, messages ...model.Message) error

	// Delete removes a session and its history.
	Delete(ctx context.Context, sessionID string) error

	// ListIDs returns the identifiers of all known sessions.
	ListIDs(ctx context.Context) ([]string, error)
}

// MemoryStore 是进程内的会话存储，服务重启后历史丢失。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]model.Message
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]model.Message),
	}
}

// History returns a copy of the session history.
func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.sessions[sessionID]
	if !ok {
		return []model.Message{}, nil
	}

	out := make([]model.Message, len(history))
	copy(out, history)
	return out, nil
}

// Append appends messages to the session, creating it if needed.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, messages ...model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	s.sessions[sessionID] = append(s.sessions[sessionID], messages...)
	s.mu.Unlock()
	return nil
}

// Delete removes the session. Deleting an unknown session succeeds.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// ListIDs returns all session identifiers.
func (s *MemoryStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}
