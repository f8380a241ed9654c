package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestProgressSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	slot := Slots(client, time.Hour)("u1")

	if _, err := slot.Load(ctx); !errors.Is(err, domain.ErrNoProgress) {
		t.Fatalf("expected no progress, got %v", err)
	}

	err := slot.Save(ctx, domain.PersistedSession{
		Questions:     []domain.Question{{ID: "q1", Text: "Q?", CorrectAnswer: "A"}},
		CurrentIndex:  0,
		Answers:       domain.AnswerMap{0: "A"},
		TimeRemaining: 77,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz_app_progress:u1") {
		t.Fatalf("expected progress key to be written")
	}
	if ttl := mr.TTL("quiz_app_progress:u1"); ttl < time.Hour || ttl > time.Hour+6*time.Minute {
		t.Fatalf("expected ttl within jitter bounds, got %s", ttl)
	}

	loaded, err := slot.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Answers[0] != "A" || loaded.TimeRemaining != 77 {
		t.Fatalf("unexpected load: %+v", loaded)
	}

	if err := slot.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz_app_progress:u1") {
		t.Fatalf("expected progress key to be removed")
	}
}

func TestProgressSlotCorruptValueIsAbsentThroughStore(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	if err := mr.Set(ProgressKey("u2"), "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := app.NewProgressStore(NewProgressSlot(client, "u2", 0), app.DiscardLogger())
	if _, ok := store.Load(ctx); ok {
		t.Fatalf("expected corrupt value to read as absent")
	}
}

func TestProgressSlotReportsOutage(t *testing.T) {
	client, mr := newClient(t)
	slot := NewProgressSlot(client, "u3", 0)
	mr.Close()

	if err := slot.Save(context.Background(), domain.PersistedSession{}); err == nil {
		t.Fatalf("expected save to fail when redis is down")
	}
}

func TestResultLogKeepsNewestFirst(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	results := NewResultLog(client)

	for pct := 20; pct <= 60; pct += 20 {
		if err := results.RecordResult(ctx, "u1", domain.ScoreReport{Percentage: pct}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, err := results.Results(ctx, "u1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(got) != 3 || got[0].Percentage != 60 || got[2].Percentage != 20 {
		t.Fatalf("unexpected results: %+v", got)
	}
}
