package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	calls   int
	results []fetchResult
	queries []app.QuestionQuery
}

type fetchResult struct {
	raw []domain.RawQuestion
	err error
}

func (f *scriptedFetcher) FetchQuestions(_ context.Context, q app.QuestionQuery) ([]domain.RawQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.raw, r.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func rawQuestions(n int) []domain.RawQuestion {
	out := make([]domain.RawQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RawQuestion{
			Type:             "multiple",
			Difficulty:       "Medium",
			Category:         "Science &amp; Nature",
			Question:         fmt.Sprintf("Which is &quot;element %d&quot;?", i),
			CorrectAnswer:    fmt.Sprintf("E%d", i),
			IncorrectAnswers: []string{"X", "Y", "Z&#039;s"},
		})
	}
	return out
}

func newTestProvider(fetcher app.QuestionFetcher, slot app.ProgressSlot) *app.QuestionProvider {
	store := app.NewProgressStore(slot, app.DiscardLogger())
	return app.NewQuestionProvider(fetcher, store, app.ProviderConfig{
		QuestionCount: 5,
		Difficulty:    "medium",
		TimeLimit:     90,
		MaxRetries:    2,
		BackoffUnit:   time.Millisecond,
	}, app.DiscardLogger())
}

func TestProviderNormalizesAndSeedsRemoteSet(t *testing.T) {
	ctx := context.Background()
	fetcher := &scriptedFetcher{results: []fetchResult{{raw: rawQuestions(5)}}}
	slot := memory.NewProgressSlot()

	set := newTestProvider(fetcher, slot).GetQuestions(ctx, false)
	if set.Source != domain.SourceRemote || len(set.Questions) != 5 {
		t.Fatalf("expected 5 remote questions, got %d from %s", len(set.Questions), set.Source)
	}
	q := set.Questions[0]
	if q.Text != `Which is "element 0"?` || q.Category != "Science & Nature" || q.IncorrectAnswers[2] != "Z's" {
		t.Fatalf("expected decoded entities, got %+v", q)
	}
	if q.Difficulty != domain.DifficultyMedium || q.Points != 2 || q.ID == "" {
		t.Fatalf("unexpected normalized fields: %+v", q)
	}
	if fetcher.queries[0].Amount != 5 || fetcher.queries[0].Difficulty != "medium" {
		t.Fatalf("unexpected query: %+v", fetcher.queries[0])
	}

	seeded, err := slot.Load(ctx)
	if err != nil {
		t.Fatalf("expected seeded slot: %v", err)
	}
	if seeded.TimeRemaining != 90 || len(seeded.Answers) != 0 || seeded.CurrentIndex != 0 || len(seeded.Questions) != 5 {
		t.Fatalf("unexpected seed: %+v", seeded)
	}
}

func TestProviderFallsBackAfterRetries(t *testing.T) {
	ctx := context.Background()
	fetcher := &scriptedFetcher{results: []fetchResult{{err: fmt.Errorf("%w: status 503", domain.ErrProviderUnavailable)}}}
	slot := memory.NewProgressSlot()

	set := newTestProvider(fetcher, slot).GetQuestions(ctx, false)
	if fetcher.Calls() != 3 {
		t.Fatalf("expected initial call plus 2 retries, got %d", fetcher.Calls())
	}
	if set.Source != domain.SourceFallback || len(set.Questions) != 5 {
		t.Fatalf("expected built-in questions, got %d from %s", len(set.Questions), set.Source)
	}
	seeded, err := slot.Load(ctx)
	if err != nil || seeded.Source != domain.SourceFallback {
		t.Fatalf("expected fallback set to be seeded, got %+v err=%v", seeded, err)
	}
}

func TestProviderDoesNotRetryMalformedResponse(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{err: domain.ErrMalformedResponse}}}

	set := newTestProvider(fetcher, memory.NewProgressSlot()).GetQuestions(context.Background(), false)
	if fetcher.Calls() != 1 {
		t.Fatalf("expected a single attempt, got %d", fetcher.Calls())
	}
	if set.Source != domain.SourceFallback {
		t.Fatalf("expected fallback, got %s", set.Source)
	}
}

func TestProviderRetriesRateLimit(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{err: domain.ErrRateLimited},
		{raw: rawQuestions(5)},
	}}

	set := newTestProvider(fetcher, memory.NewProgressSlot()).GetQuestions(context.Background(), false)
	if fetcher.Calls() != 2 || set.Source != domain.SourceRemote {
		t.Fatalf("expected success on retry, got %d calls source %s", fetcher.Calls(), set.Source)
	}
}

func TestProviderReusesRunningSession(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewProgressSlot()
	existing := app.NormalizeQuestions(rawQuestions(5))
	_ = slot.Save(ctx, domain.PersistedSession{
		Questions:      existing,
		Source:         domain.SourceRemote,
		Answers:        domain.AnswerMap{0: "E0"},
		TimeRemaining:  70,
		TimerStartedAt: time.Now().Add(-time.Minute),
		SavedAt:        time.Now().Add(-time.Minute),
	})
	fetcher := &scriptedFetcher{results: []fetchResult{{raw: rawQuestions(5)}}}
	provider := newTestProvider(fetcher, slot)

	set := provider.GetQuestions(ctx, false)
	if fetcher.Calls() != 0 {
		t.Fatalf("expected no remote call, got %d", fetcher.Calls())
	}
	if set.Questions[0].ID != existing[0].ID {
		t.Fatalf("expected persisted questions to be reused")
	}
	loaded, _ := slot.Load(ctx)
	if loaded.Answers[0] != "E0" {
		t.Fatalf("expected reuse to leave saved answers alone, got %+v", loaded.Answers)
	}

	provider.GetQuestions(ctx, true)
	if fetcher.Calls() != 1 {
		t.Fatalf("expected fresh request to hit the remote source, got %d", fetcher.Calls())
	}
}

func TestProviderIgnoresExpiredOrMisshapenSession(t *testing.T) {
	ctx := context.Background()
	cases := map[string]domain.PersistedSession{
		"expired": {
			Questions: app.NormalizeQuestions(rawQuestions(5)),
			SavedAt:   time.Now().Add(-48 * time.Hour),
		},
		"wrong count": {
			Questions: app.NormalizeQuestions(rawQuestions(3)),
			SavedAt:   time.Now(),
		},
	}
	for name, persisted := range cases {
		t.Run(name, func(t *testing.T) {
			slot := memory.NewProgressSlot()
			_ = slot.Save(ctx, persisted)
			fetcher := &scriptedFetcher{results: []fetchResult{{raw: rawQuestions(5)}}}

			newTestProvider(fetcher, slot).GetQuestions(ctx, false)
			if fetcher.Calls() != 1 {
				t.Fatalf("expected a remote fetch, got %d", fetcher.Calls())
			}
		})
	}
}

func TestProviderPrefersStaleSetOverBuiltIn(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewProgressSlot()
	stale := app.NormalizeQuestions(rawQuestions(3))
	_ = slot.Save(ctx, domain.PersistedSession{Questions: stale, SavedAt: time.Now()})
	fetcher := &scriptedFetcher{results: []fetchResult{{err: domain.ErrProviderUnavailable}}}

	set := newTestProvider(fetcher, slot).GetQuestions(ctx, false)
	if len(set.Questions) != 3 || set.Questions[0].ID != stale[0].ID {
		t.Fatalf("expected the stale persisted set, got %d questions", len(set.Questions))
	}
}

func TestProviderStopsRetryingWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &scriptedFetcher{results: []fetchResult{{err: domain.ErrProviderUnavailable}}}
	store := app.NewProgressStore(memory.NewProgressSlot(), app.DiscardLogger())
	provider := app.NewQuestionProvider(fetcher, store, app.ProviderConfig{
		MaxRetries:  3,
		BackoffUnit: time.Hour,
	}, app.DiscardLogger())

	done := make(chan app.QuestionSet, 1)
	go func() { done <- provider.GetQuestions(ctx, false) }()

	select {
	case set := <-done:
		if set.Source != domain.SourceFallback || fetcher.Calls() != 1 {
			t.Fatalf("expected fallback after one attempt, got %s with %d calls", set.Source, fetcher.Calls())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("provider kept waiting after context cancellation")
	}
}

func TestProviderWithoutStorageStillServesQuestions(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{err: errors.New("dial tcp: refused")}}}
	provider := app.NewQuestionProvider(fetcher, nil, app.ProviderConfig{}, app.DiscardLogger())

	set := provider.GetQuestions(context.Background(), false)
	if len(set.Questions) != len(app.FallbackQuestions()) {
		t.Fatalf("expected built-in set, got %d questions", len(set.Questions))
	}
}
