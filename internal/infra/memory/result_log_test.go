package memory

import (
	"context"
	"testing"

	"quiz-session-service/internal/domain"
)

func TestResultLogKeepsOrderPerOwner(t *testing.T) {
	ctx := context.Background()
	log := NewResultLog()

	_ = log.RecordResult(ctx, "alice", domain.ScoreReport{CorrectAnswers: 1})
	_ = log.RecordResult(ctx, "bob", domain.ScoreReport{CorrectAnswers: 5})
	_ = log.RecordResult(ctx, "alice", domain.ScoreReport{CorrectAnswers: 3})

	got := log.Results("alice")
	if len(got) != 2 || got[0].CorrectAnswers != 1 || got[1].CorrectAnswers != 3 {
		t.Fatalf("unexpected results for alice: %+v", got)
	}
	got[0].CorrectAnswers = 99
	if log.Results("alice")[0].CorrectAnswers != 1 {
		t.Fatalf("expected Results to return a copy")
	}
	if len(log.Results("carol")) != 0 {
		t.Fatalf("expected no results for unknown owner")
	}
}
