package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		_ = os.Remove(path)
		_ = os.Remove(path + "-journal")
	})
	return store
}

func TestProgressSlotOverwriteAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	slot := store.Slot("alice")

	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected no progress, got %v", err)
	}

	if err := slot.Save(ctx, domain.PersistedSession{CurrentIndex: 1, Answers: domain.AnswerMap{0: "a"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := slot.Save(ctx, domain.PersistedSession{CurrentIndex: 2, Answers: domain.AnswerMap{0: "a", 1: "b"}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := slot.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CurrentIndex != 2 || got.Answers[1] != "b" {
		t.Fatalf("expected latest write, got %+v", got)
	}
	if _, err := store.Slot("bob").Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected slots to be per user, got %v", err)
	}

	if err := slot.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected cleared slot, got %v", err)
	}
}

func TestCorruptRowReadsAsAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.db.ExecContext(ctx, `INSERT INTO quiz_progress (user_id, data, saved_at_unix) VALUES ('carol', 'oops', 0)`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	progress := app.NewProgressStore(store.Slot("carol"), app.DiscardLogger())
	if _, ok := progress.Load(ctx); ok {
		t.Fatalf("expected corrupt row to read as absent")
	}
}

func TestRecordAndListResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	for i, pct := range []int{40, 100} {
		report := domain.ScoreReport{
			TotalQuestions: 5,
			CorrectAnswers: pct / 20,
			Percentage:     pct,
			CompletedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.RecordResult(ctx, "alice", report); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	results, err := store.Results(ctx, "alice")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 2 || results[0].Percentage != 100 || results[1].Percentage != 40 {
		t.Fatalf("unexpected results: %+v", results)
	}
}
