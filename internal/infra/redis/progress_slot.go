package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// ProgressSlot stores one user's progress as a JSON string under
// quiz_app_progress:<user>. A non-zero TTL lets abandoned attempts expire.
type ProgressSlot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewProgressSlot(client *redis.Client, userID string, ttl time.Duration) *ProgressSlot {
	return &ProgressSlot{client: client, key: ProgressKey(userID), ttl: ttl}
}

// ProgressKey is the Redis key holding userID's progress.
func ProgressKey(userID string) string {
	return app.ProgressKey + ":" + userID
}

// Slots returns an app.SlotFactory backed by client. Each key's TTL gets up to
// 10% jitter so a burst of attempts does not expire at once.
func Slots(client *redis.Client, ttl time.Duration) app.SlotFactory {
	j := &jitter{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	return func(userID string) app.ProgressSlot {
		return NewProgressSlot(client, userID, j.apply(ttl))
	}
}

func (s *ProgressSlot) Save(ctx context.Context, session domain.PersistedSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return s.client.Set(ctx, s.key, payload, s.ttl).Err()
}

func (s *ProgressSlot) Load(ctx context.Context) (domain.PersistedSession, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PersistedSession{}, domain.ErrNoProgress
		}
		return domain.PersistedSession{}, err
	}
	var session domain.PersistedSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.PersistedSession{}, fmt.Errorf("decode progress: %w", err)
	}
	return session, nil
}

func (s *ProgressSlot) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

type jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (j *jitter) apply(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(j.rnd.Int63n(jitterMax+1))
}
