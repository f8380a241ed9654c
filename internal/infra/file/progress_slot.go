package file

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// ProgressSlot keeps one user's progress in <dir>/quiz_app_progress.<user>.json.
type ProgressSlot struct {
	path string
}

func NewProgressSlot(dir, userID string) *ProgressSlot {
	name := app.ProgressKey + "." + url.PathEscape(userID) + ".json"
	return &ProgressSlot{path: filepath.Join(dir, name)}
}

// Slots returns an app.SlotFactory rooted at dir.
func Slots(dir string) app.SlotFactory {
	return func(userID string) app.ProgressSlot {
		return NewProgressSlot(dir, userID)
	}
}

// Path is where the slot lives on disk.
func (s *ProgressSlot) Path() string {
	return s.path
}

// Save writes to a temporary file and renames it over the slot, so a crash
// mid-write leaves the previous snapshot intact.
func (s *ProgressSlot) Save(_ context.Context, session domain.PersistedSession) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	payload, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}

func (s *ProgressSlot) Load(_ context.Context) (domain.PersistedSession, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PersistedSession{}, domain.ErrNoProgress
		}
		return domain.PersistedSession{}, fmt.Errorf("read progress: %w", err)
	}
	var session domain.PersistedSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.PersistedSession{}, fmt.Errorf("decode progress: %w", err)
	}
	return session, nil
}

func (s *ProgressSlot) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
