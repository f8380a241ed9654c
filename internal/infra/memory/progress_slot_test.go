package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestProgressSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := NewProgressSlot()

	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected no progress, got %v", err)
	}

	started := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	saved := domain.PersistedSession{
		Questions:      []domain.Question{{ID: "q1", Text: "What is 2 + 2?", CorrectAnswer: "4"}},
		CurrentIndex:   0,
		Answers:        domain.AnswerMap{0: "4"},
		TimeRemaining:  60,
		TimerStartedAt: started,
		SavedAt:        started.Add(5 * time.Second),
	}
	if err := slot.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := slot.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Answers[0] != "4" || loaded.TimeRemaining != 60 || !loaded.TimerStartedAt.Equal(started) {
		t.Fatalf("unexpected round trip: %+v", loaded)
	}

	// Mutating the loaded copy must not leak into the slot.
	loaded.Answers[0] = "5"
	again, _ := slot.Load(ctx)
	if again.Answers[0] != "4" {
		t.Fatalf("expected slot to be isolated from callers, got %q", again.Answers[0])
	}

	if err := slot.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected cleared slot, got %v", err)
	}
}

func TestProgressSlotsArePerUser(t *testing.T) {
	ctx := context.Background()
	slots := NewProgressSlots()

	if err := slots.Slot("alice").Save(ctx, domain.PersistedSession{CurrentIndex: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := slots.Slot("bob").Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected bob to have no progress, got %v", err)
	}
	got, err := slots.Slot("alice").Load(ctx)
	if err != nil || got.CurrentIndex != 2 {
		t.Fatalf("expected alice progress to persist, got %+v err=%v", got, err)
	}
}
