package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// ResultLog appends submitted reports to quiz_results.
type ResultLog struct {
	pool *pgxpool.Pool
}

func NewResultLog(pool *pgxpool.Pool) *ResultLog {
	return &ResultLog{pool: pool}
}

func (l *ResultLog) RecordResult(ctx context.Context, owner string, report domain.ScoreReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO quiz_results (user_id, correct, total, percentage, timed_out, report, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		owner, report.CorrectAnswers, report.TotalQuestions, report.Percentage, report.TimedOut, string(data), report.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Results returns owner's reports, newest first.
func (l *ResultLog) Results(ctx context.Context, owner string) ([]domain.ScoreReport, error) {
	rows, err := l.pool.Query(ctx, `SELECT report FROM quiz_results WHERE user_id=$1 ORDER BY completed_at DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var reports []domain.ScoreReport
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var report domain.ScoreReport
		if err := json.Unmarshal(raw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
