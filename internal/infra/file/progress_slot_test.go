package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestProgressSlotSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	slot := NewProgressSlot(dir, "alice")

	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected no progress, got %v", err)
	}

	started := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	err := slot.Save(ctx, domain.PersistedSession{
		Questions:      []domain.Question{{ID: "q1", Text: "Q?", CorrectAnswer: "A"}},
		CurrentIndex:   0,
		Answers:        domain.AnswerMap{0: "A"},
		TimeRemaining:  45,
		TimerStartedAt: started,
		SavedAt:        started,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := slot.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Answers[0] != "A" || loaded.TimeRemaining != 45 || !loaded.TimerStartedAt.Equal(started) {
		t.Fatalf("unexpected load: %+v", loaded)
	}

	if err := slot.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := slot.Clear(ctx); err != nil {
		t.Fatalf("clearing twice should be a no-op: %v", err)
	}
	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected no progress after clear, got %v", err)
	}
}

func TestProgressSlotCorruptFile(t *testing.T) {
	dir := t.TempDir()
	slot := NewProgressSlot(dir, "bob")
	if err := os.WriteFile(slot.Path(), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := slot.Load(context.Background())
	if err == nil || errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSlotsKeepUsersApart(t *testing.T) {
	ctx := context.Background()
	slots := Slots(t.TempDir())

	if err := slots("team/one").Save(ctx, domain.PersistedSession{CurrentIndex: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := slots("team").Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected separate slot, got %v", err)
	}
	got, err := slots("team/one").Load(ctx)
	if err != nil || got.CurrentIndex != 3 {
		t.Fatalf("unexpected load: %+v err=%v", got, err)
	}
}
