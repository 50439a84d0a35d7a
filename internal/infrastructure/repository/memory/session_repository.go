package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
)

type SessionRepository struct {
	mu    sync.RWMutex
	items map[string]tutor.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{items: make(map[string]tutor.Session)}
}

func (r *SessionRepository) GetByUserID(_ context.Context, userID string) (tutor.Session, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[userID]
	return session, ok, nil
}

func (r *SessionRepository) Upsert(_ context.Context, session tutor.Session) error {
	if strings.TrimSpace(session.UserID) == "" {
		return fmt.Errorf("session user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[session.UserID] = session
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, userID)
	return nil
}

// Len reports the number of active sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
