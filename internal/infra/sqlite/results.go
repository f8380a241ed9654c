package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-session-service/internal/domain"
)

func (s *Store) RecordResult(ctx context.Context, owner string, report domain.ScoreReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	timedOut := 0
	if report.TimedOut {
		timedOut = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quiz_results (user_id, correct, total, percentage, timed_out, report, completed_at_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		owner, report.CorrectAnswers, report.TotalQuestions, report.Percentage, timedOut, string(data), report.CompletedAt.Unix())
	return err
}

// Results returns owner's reports, newest first.
func (s *Store) Results(ctx context.Context, owner string) ([]domain.ScoreReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report FROM quiz_results WHERE user_id = ?
		ORDER BY completed_at_unix DESC, id DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.ScoreReport
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var report domain.ScoreReport
		if err := json.Unmarshal([]byte(data), &report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
