// Package session persists viewer sessions so a browser's position in a
// collection survives page reloads and server restarts.
//
// A [Session] records which tree a viewer is looking at: the cursor state and
// the pan/zoom transform, bound to the collection generation it was created
// for. Three [Store] backends are provided:
//   - [MemoryStore]: single-process servers and tests
//   - [FileStore]: one JSON file per session
//   - [RedisStore]: shared across server instances
//
// # Usage
//
//	sess, _ := session.New("asts.json#1", 3, session.DefaultTTL)
//	_ = store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, id)
//	if sess == nil {
//	    // not found or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/astview/pkg/nav"
	"github.com/matzehuels/astview/pkg/render"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidID is returned for IDs that are not UUIDs.
	ErrInvalidID = errors.New("invalid session id")
)

// DefaultTTL is how long an idle viewer session lives.
const DefaultTTL = 24 * time.Hour

// Session is one viewer's position in a collection.
type Session struct {
	ID         string           `json:"id" bson:"_id"`
	Collection string           `json:"collection" bson:"collection"`
	State      nav.State        `json:"state" bson:"state"`
	View       render.Transform `json:"view" bson:"view"`
	CreatedAt  time.Time        `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at" bson:"expires_at"`
}

// New creates a session at index 0 of a collection of count trees.
func New(collection string, count int, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:         id.String(),
		Collection: collection,
		State:      nav.State{Count: count},
		View:       render.Identity,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the expiry to ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.ExpiresAt = time.Now().Add(ttl)
}

// TTL returns the remaining lifetime, never negative.
func (s *Session) TTL() time.Duration {
	return max(time.Until(s.ExpiresAt), 0)
}

// ValidateID checks that id is a UUID, which also makes it safe to use as a
// file name.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get returns nil, nil when the session is missing or expired.
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
	// Cleanup removes expired sessions; a no-op where the backend expires
	// entries itself.
	Cleanup(ctx context.Context) error
	Close() error
}
