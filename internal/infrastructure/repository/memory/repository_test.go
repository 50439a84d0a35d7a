package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
)

func TestProfileRepository_UpsertGetDelete(t *testing.T) {
	repo := NewProfileRepository()
	ctx := t.Context()

	if _, ok, err := repo.GetByUserID(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected empty repository, ok=%v err=%v", ok, err)
	}

	if err := repo.Upsert(ctx, tutor.Profile{UserID: "u1", Age: 15, Interest: "🎮 Games", Persona: "🥋 Wise sensei"}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	got, ok, err := repo.GetByUserID(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected stored profile, ok=%v err=%v", ok, err)
	}
	if got.Age != 15 || got.Interest != "🎮 Games" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if _, ok, _ := repo.GetByUserID(ctx, "u1"); ok {
		t.Fatalf("expected profile to be deleted")
	}

	if err := repo.Upsert(ctx, tutor.Profile{}); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestSessionRepository_ConcurrentUsers(t *testing.T) {
	repo := NewSessionRepository()
	ctx := t.Context()

	const users = 50
	var wg sync.WaitGroup
	wg.Add(users)
	for i := 0; i < users; i++ {
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			session := tutor.Session{UserID: userID, Stage: tutor.StageAwaitingInterest, Draft: tutor.Draft{Age: 6 + i}}
			if err := repo.Upsert(ctx, session); err != nil {
				t.Errorf("upsert session: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if repo.Len() != users {
		t.Fatalf("expected %d sessions, got %d", users, repo.Len())
	}
	for i := 0; i < users; i++ {
		got, ok, err := repo.GetByUserID(ctx, fmt.Sprintf("user-%d", i))
		if err != nil || !ok {
			t.Fatalf("expected session for user %d", i)
		}
		if got.Draft.Age != 6+i {
			t.Fatalf("user %d: cross-user interference, age=%d", i, got.Draft.Age)
		}
	}
}
