package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/render"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	sess, err := New("asts.json#1", 3, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get(ctx, sess.ID); got != nil || err != nil {
		t.Fatalf("Get before Set = %+v, %v", got, err)
	}

	sess.State.Index = 2
	sess.View = render.Identity.Zoom(2)
	if err := s.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if got.State.Index != 2 || got.State.Count != 3 || got.View.K != 2 || got.Collection != "asts.json#1" {
		t.Errorf("round trip = %+v", got)
	}

	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := s.Get(ctx, sess.ID); got != nil {
		t.Error("session survived Delete")
	}

	if err := s.Set(ctx, &Session{ID: "../../etc/passwd"}); err == nil {
		t.Error("Set accepted a non-UUID id")
	}
}

func TestNew(t *testing.T) {
	sess, err := New("c", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateID(sess.ID); err != nil {
		t.Errorf("generated id %q invalid", sess.ID)
	}
	if sess.State.Index != 0 || sess.State.Count != 5 {
		t.Errorf("state = %+v", sess.State)
	}
	if !sess.View.IsIdentity() {
		t.Errorf("view = %+v, want identity", sess.View)
	}
	if ttl := sess.TTL(); ttl < DefaultTTL-time.Minute || ttl > DefaultTTL {
		t.Errorf("TTL = %v, want about %v", ttl, DefaultTTL)
	}
	other, _ := New("c", 5, 0)
	if other.ID == sess.ID {
		t.Error("IDs should be unique")
	}
}

func TestExpiry(t *testing.T) {
	sess, _ := New("c", 1, time.Hour)
	sess.ExpiresAt = time.Now().Add(-time.Second)
	if !sess.IsExpired() || sess.TTL() != 0 {
		t.Error("past session should be expired")
	}
	sess.Touch(time.Hour)
	if sess.IsExpired() {
		t.Error("Touch should extend expiry")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	live, _ := New("c", 1, time.Hour)
	dead, _ := New("c", 1, time.Hour)
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	_ = s.Set(ctx, live)
	_ = s.Set(ctx, dead)

	if got, _ := s.Get(ctx, dead.ID); got != nil {
		t.Error("expired session returned")
	}
	_ = s.Set(ctx, dead)
	if err := s.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Len after Cleanup = %d, want 1", s.Len())
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestFileStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dead, _ := New("c", 1, time.Hour)
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	if err := s.Set(ctx, dead); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.sessionPath(dead.ID)); !os.IsNotExist(err) {
		t.Error("expired session file not removed")
	}
	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore(\"\") should fail")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("ASTVIEW_TEST_REDIS")
	if addr == "" {
		t.Skip("ASTVIEW_TEST_REDIS not set")
	}
	client, err := cache.NewRedisClient(addr)
	if err != nil {
		t.Fatal(err)
	}
	s := NewRedisStore(client, "astview-test:")
	defer s.Close()
	exerciseStore(t, s)
}
