package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
)

const maxResultsPerUser = 50

// ResultLog keeps the latest reports per user in a capped Redis list.
type ResultLog struct {
	client *redis.Client
}

func NewResultLog(client *redis.Client) *ResultLog {
	return &ResultLog{client: client}
}

func (l *ResultLog) RecordResult(ctx context.Context, owner string, report domain.ScoreReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	key := l.key(owner)
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, maxResultsPerUser-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Results returns owner's reports, newest first.
func (l *ResultLog) Results(ctx context.Context, owner string) ([]domain.ScoreReport, error) {
	items, err := l.client.LRange(ctx, l.key(owner), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	reports := make([]domain.ScoreReport, 0, len(items))
	for _, item := range items {
		var report domain.ScoreReport
		if err := json.Unmarshal([]byte(item), &report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (l *ResultLog) key(owner string) string {
	return "quiz_app_results:" + owner
}
