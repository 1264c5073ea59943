package repo

import (
	"context"
	"sync"
	"time"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
)

// MemorySessionRepository keeps sessions in process memory. Entries expire
// ttl after their last touch; expiry is checked lazily on Load.
type MemorySessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	state   *model.ConversationState
	touched time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{ttl: ttl, now: time.Now, sessions: map[string]memoryEntry{}}
}

func (r *MemorySessionRepository) Save(_ context.Context, state *model.ConversationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[state.SessionID] = memoryEntry{state: state.Clone(), touched: r.now()}
	return nil
}

func (r *MemorySessionRepository) Load(_ context.Context, sessionID string) (*model.ConversationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, errx.ErrSessionNotFound
	}
	now := r.now()
	if r.ttl > 0 && now.Sub(e.touched) > r.ttl {
		delete(r.sessions, sessionID)
		return nil, errx.ErrSessionNotFound
	}
	e.touched = now
	r.sessions[sessionID] = e
	return e.state.Clone(), nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
