package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// ResultLog is an in-memory app.ResultRecorder.
type ResultLog struct {
	mu      sync.Mutex
	results map[string][]domain.ScoreReport
}

func NewResultLog() *ResultLog {
	return &ResultLog{results: make(map[string][]domain.ScoreReport)}
}

func (l *ResultLog) RecordResult(_ context.Context, owner string, report domain.ScoreReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results[owner] = append(l.results[owner], report)
	return nil
}

// Results returns what was recorded for owner, oldest first.
func (l *ResultLog) Results(owner string) []domain.ScoreReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ScoreReport(nil), l.results[owner]...)
}
