package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

func setupTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	client, mr := setupTestRedis(t)
	return NewSessionStore(client), mr
}

func newTestSession(id, userID string) *domain.Session {
	now := time.Now().Truncate(time.Second)
	return &domain.Session{
		ID:           id,
		UserID:       userID,
		Token:        "token-" + id,
		RefreshToken: "refresh-" + id,
		ExpiresAt:    now.Add(24 * time.Hour),
		CreatedAt:    now,
		UserAgent:    "Mozilla/5.0",
		IPAddress:    "10.0.0.1",
	}
}

func TestSessionStore_SaveAndLookups(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	ctx := context.Background()
	session := newTestSession("s1", "user-1")

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, key := range []string{
		sessionPrefix + "s1",
		sessionTokenPrefix + "token-s1",
		sessionRefreshPrefix + "refresh-s1",
		sessionUserPrefix + "user-1",
	} {
		if !mr.Exists(key) {
			t.Errorf("expected key %s", key)
		}
	}
	if ttl := mr.TTL(sessionPrefix + "s1"); ttl <= 23*time.Hour {
		t.Errorf("session TTL = %v, want about 24h", ttl)
	}

	lookups := map[string]func() (*domain.Session, error){
		"Get":               func() (*domain.Session, error) { return store.Get(ctx, "s1") },
		"GetByToken":        func() (*domain.Session, error) { return store.GetByToken(ctx, "token-s1") },
		"GetByRefreshToken": func() (*domain.Session, error) { return store.GetByRefreshToken(ctx, "refresh-s1") },
	}
	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			got, err := lookup()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != "s1" || got.UserID != "user-1" || got.IPAddress != "10.0.0.1" {
				t.Errorf("unexpected session %+v", got)
			}
			if !got.ExpiresAt.Equal(session.ExpiresAt) {
				t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, session.ExpiresAt)
			}
		})
	}
}

func TestSessionStore_SaveExpiredIsDropped(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	session := newTestSession("old", "user-1")
	session.ExpiresAt = time.Now().Add(-time.Minute)

	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if mr.Exists(sessionPrefix + "old") {
		t.Error("expired session should not be stored")
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	store, _ := setupTestSessionStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByToken(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByToken: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByRefreshToken(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByRefreshToken: expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_IndexOutlivesSession(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	ctx := context.Background()

	mr.Set(sessionTokenPrefix+"dangling", "gone")
	if _, err := store.GetByToken(ctx, "dangling"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for dangling index, got %v", err)
	}
}

func TestSessionStore_CorruptJSON(t *testing.T) {
	store, mr := setupTestSessionStore(t)

	mr.Set(sessionPrefix+"bad", "{not json")
	_, err := store.Get(context.Background(), "bad")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestSessionStore_DeleteRemovesIndexes(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	ctx := context.Background()
	keep := newTestSession("keep", "user-1")
	drop := newTestSession("drop", "user-1")
	for _, s := range []*domain.Session{keep, drop} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if err := store.Delete(ctx, "drop"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, key := range []string{
		sessionPrefix + "drop",
		sessionTokenPrefix + "token-drop",
		sessionRefreshPrefix + "refresh-drop",
	} {
		if mr.Exists(key) {
			t.Errorf("key %s should be gone", key)
		}
	}
	if ok, _ := mr.SIsMember(sessionUserPrefix+"user-1", "drop"); ok {
		t.Error("deleted session still in user set")
	}
	if _, err := store.Get(ctx, "keep"); err != nil {
		t.Errorf("sibling session lost: %v", err)
	}

	// Deleting twice is fine.
	if err := store.Delete(ctx, "drop"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestSessionStore_DeleteByToken(t *testing.T) {
	store, _ := setupTestSessionStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, newTestSession("s1", "user-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.DeleteByToken(ctx, "token-s1"); err != nil {
		t.Fatalf("DeleteByToken: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected session gone, got %v", err)
	}
	if err := store.DeleteByToken(ctx, "unknown"); err != nil {
		t.Errorf("DeleteByToken unknown: %v", err)
	}
}

func TestSessionStore_DeleteByUser(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, newTestSession(fmt.Sprintf("a%d", i), "alice")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := store.Save(ctx, newTestSession("b0", "bob")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// One of alice's sessions already expired out of redis.
	mr.Del(sessionPrefix + "a1")

	if err := store.DeleteByUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	if mr.Exists(sessionUserPrefix + "alice") {
		t.Error("user set should be removed")
	}
	left, err := store.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("expected no sessions for alice, got %d", len(left))
	}
	if _, err := store.Get(ctx, "b0"); err != nil {
		t.Errorf("bob's session should survive: %v", err)
	}

	if err := store.DeleteByUser(ctx, "nobody"); err != nil {
		t.Errorf("DeleteByUser without sessions: %v", err)
	}
}

func TestSessionStore_ListByUserPrunesStale(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	ctx := context.Background()
	live := newTestSession("live", "user-1")
	gone := newTestSession("gone", "user-1")
	for _, s := range []*domain.Session{live, gone} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	mr.Del(sessionPrefix + "gone")

	sessions, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "live" {
		t.Fatalf("expected only the live session, got %+v", sessions)
	}
	if ok, _ := mr.SIsMember(sessionUserPrefix+"user-1", "gone"); ok {
		t.Error("stale ID should be pruned from user set")
	}
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	ctx := context.Background()
	session := newTestSession("short", "user-1")
	session.ExpiresAt = time.Now().Add(2 * time.Second)
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mr.FastForward(3 * time.Second)

	if _, err := store.GetByToken(ctx, "token-short"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestSessionStore_ConcurrentSaves(t *testing.T) {
	store, _ := setupTestSessionStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Save(ctx, newTestSession(fmt.Sprintf("c%d", i), "user-1"))
		}(i)
	}
	wg.Wait()

	sessions, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(sessions) != 10 {
		t.Errorf("expected 10 sessions, got %d", len(sessions))
	}
}

func TestSessionStore_RedisDown(t *testing.T) {
	store, mr := setupTestSessionStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "s1")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected connection error, got %v", err)
	}
}
