package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRepository.
// Sessions live in process; Redis holds a liveness marker per user so other
// instances (and operators) can see who has a quiz running.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) GetOrCreate(userID string, create func() *app.Session) (*app.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[userID]; ok {
		return session, false
	}
	session := create()
	r.sessions[userID] = session
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(userID), "1", r.ttl).Err()
	return session, true
}

func (r *SessionRegistry) Get(userID string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[userID]
	return session, ok
}

func (r *SessionRegistry) Delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; !ok {
		return
	}
	delete(r.sessions, userID)
	_ = r.client.Del(context.Background(), r.key(userID)).Err()
}

func (r *SessionRegistry) key(userID string) string {
	return "quiz:session:" + userID
}
