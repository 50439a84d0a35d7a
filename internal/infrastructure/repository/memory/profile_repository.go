package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
)

type ProfileRepository struct {
	mu    sync.RWMutex
	items map[string]tutor.Profile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{items: make(map[string]tutor.Profile)}
}

func (r *ProfileRepository) GetByUserID(_ context.Context, userID string) (tutor.Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.items[userID]
	return profile, ok, nil
}

func (r *ProfileRepository) Upsert(_ context.Context, profile tutor.Profile) error {
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("profile user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[profile.UserID] = profile
	return nil
}

func (r *ProfileRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, userID)
	return nil
}
