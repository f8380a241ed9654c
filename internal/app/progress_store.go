package app

import (
	"context"
	"errors"
	"io"
	"log"

	"quiz-session-service/internal/domain"
)

// ProgressKey is the fixed key every slot namespaces its single entry under.
const ProgressKey = "quiz_app_progress"

// ProgressSlot is a durable single-entry store (memory, file, Redis, Postgres, SQLite).
// Load returns domain.ErrNoProgress when nothing is stored.
type ProgressSlot interface {
	Save(ctx context.Context, session domain.PersistedSession) error
	Load(ctx context.Context) (domain.PersistedSession, error)
	Clear(ctx context.Context) error
}

// ProgressStore wraps a slot so that storage failures never reach the caller:
// they are logged and treated as "no saved progress".
type ProgressStore struct {
	slot   ProgressSlot
	logger *log.Logger
}

func NewProgressStore(slot ProgressSlot, logger *log.Logger) *ProgressStore {
	if logger == nil {
		logger = log.Default()
	}
	return &ProgressStore{slot: slot, logger: logger}
}

// Save overwrites the slot. Failures are logged and reported as false.
func (s *ProgressStore) Save(ctx context.Context, session domain.PersistedSession) bool {
	if s == nil || s.slot == nil {
		return false
	}
	if session.Version == 0 {
		session.Version = domain.PersistedSessionVersion
	}
	if err := s.slot.Save(ctx, session); err != nil {
		s.logger.Printf("failed to save progress: %v", errors.Join(domain.ErrStorageUnavailable, err))
		return false
	}
	return true
}

// Load returns the stored session, or false when absent, unreadable or corrupt.
func (s *ProgressStore) Load(ctx context.Context) (domain.PersistedSession, bool) {
	if s == nil || s.slot == nil {
		return domain.PersistedSession{}, false
	}
	session, err := s.slot.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoProgress) {
			s.logger.Printf("failed to load progress: %v", errors.Join(domain.ErrStorageUnavailable, err))
		}
		return domain.PersistedSession{}, false
	}
	if session.Answers == nil {
		session.Answers = domain.AnswerMap{}
	}
	return session, true
}

// Clear empties the slot.
func (s *ProgressStore) Clear(ctx context.Context) {
	if s == nil || s.slot == nil {
		return
	}
	if err := s.slot.Clear(ctx); err != nil {
		s.logger.Printf("failed to clear progress: %v", errors.Join(domain.ErrStorageUnavailable, err))
	}
}

// DiscardLogger is handy for tests that exercise failure paths.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
