package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// ProgressSlot keeps one user's progress as a JSONB row in quiz_progress.
type ProgressSlot struct {
	pool   *pgxpool.Pool
	userID string
	now    func() time.Time
}

func NewProgressSlot(pool *pgxpool.Pool, userID string) *ProgressSlot {
	return &ProgressSlot{pool: pool, userID: userID, now: time.Now}
}

// Slots returns an app.SlotFactory backed by pool.
func Slots(pool *pgxpool.Pool) app.SlotFactory {
	return func(userID string) app.ProgressSlot {
		return NewProgressSlot(pool, userID)
	}
}

func (s *ProgressSlot) Save(ctx context.Context, session domain.PersistedSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_progress (user_id, data, saved_at) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`,
		s.userID, string(data), s.now().UTC())
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressSlot) Load(ctx context.Context) (domain.PersistedSession, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quiz_progress WHERE user_id=$1`, s.userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PersistedSession{}, domain.ErrNoProgress
		}
		return domain.PersistedSession{}, fmt.Errorf("load progress: %w", err)
	}
	var session domain.PersistedSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.PersistedSession{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return session, nil
}

func (s *ProgressSlot) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_progress WHERE user_id=$1`, s.userID); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
