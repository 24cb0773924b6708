package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	claimed     map[string]bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]bool{}}
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ss:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		f.lastDeleted = key
		delete(f.claimed, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx := context.Background()
	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(ctx, "notifications", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatal("expected first call to claim the event")
	}
	if want := "ss:idempotency:evt:processed:notifications:" + eventID.String(); store.lastKey != want {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}

	already, err = manager.CheckAndMarkProcessed(ctx, "notifications", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatal("expected second call to report already processed")
	}

	already, err = manager.CheckAndMarkProcessed(ctx, "audit", eventID)
	if err != nil || already {
		t.Fatalf("expected other consumer to claim independently, got already=%v err=%v", already, err)
	}
}

func TestCheckAndMarkProcessedErrors(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notifications", uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for blank consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notifications", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}

func TestDeleteReleasesClaim(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx := context.Background()
	eventID := uuid.New()
	if _, err := manager.CheckAndMarkProcessed(ctx, "notifications", eventID); err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if err := manager.Delete(ctx, "notifications", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	already, err := manager.CheckAndMarkProcessed(ctx, "notifications", eventID)
	if err != nil || already {
		t.Fatalf("expected claim to be released, got already=%v err=%v", already, err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(newFakeStore(), -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
