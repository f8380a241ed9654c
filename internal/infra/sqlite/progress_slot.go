package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// ProgressSlot is one user's row in quiz_progress.
type ProgressSlot struct {
	db     *sql.DB
	userID string
}

// Slot returns the progress slot for userID. It matches app.SlotFactory.
func (s *Store) Slot(userID string) app.ProgressSlot {
	return &ProgressSlot{db: s.db, userID: userID}
}

func (p *ProgressSlot) Save(ctx context.Context, session domain.PersistedSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO quiz_progress (user_id, data, saved_at_unix) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, saved_at_unix = excluded.saved_at_unix`,
		p.userID, string(data), time.Now().Unix())
	return err
}

func (p *ProgressSlot) Load(ctx context.Context) (domain.PersistedSession, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM quiz_progress WHERE user_id = ?`, p.userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PersistedSession{}, domain.ErrNoProgress
		}
		return domain.PersistedSession{}, err
	}
	var session domain.PersistedSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return domain.PersistedSession{}, fmt.Errorf("decode progress: %w", err)
	}
	return session, nil
}

func (p *ProgressSlot) Clear(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM quiz_progress WHERE user_id = ?`, p.userID)
	return err
}
