package app

import (
	"math"

	"quiz-session-service/internal/domain"
)

// Summary is the pure scoring result.
type Summary struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Score counts answers that exactly match each question's correct answer.
// No case or whitespace normalization is applied.
func Score(questions []domain.Question, answers domain.AnswerMap) Summary {
	correct := 0
	for i, q := range questions {
		if selected, ok := answers[i]; ok && selected == q.CorrectAnswer {
			correct++
		}
	}
	return Summary{
		Correct:    correct,
		Total:      len(questions),
		Percentage: percentage(correct, len(questions)),
	}
}

// Breakdown lists every question with what was picked and whether it was right.
func Breakdown(questions []domain.Question, answers domain.AnswerMap) []domain.QuestionResult {
	rows := make([]domain.QuestionResult, 0, len(questions))
	for i, q := range questions {
		selected, answered := answers[i]
		rows = append(rows, domain.QuestionResult{
			Index:         i,
			Question:      q.Text,
			Selected:      selected,
			CorrectAnswer: q.CorrectAnswer,
			Answered:      answered,
			Correct:       answered && selected == q.CorrectAnswer,
		})
	}
	return rows
}

// BandFor buckets a percentage the way the result page colours it.
func BandFor(pct int) domain.Band {
	switch {
	case pct >= 80:
		return domain.BandExcellent
	case pct >= 60:
		return domain.BandPass
	default:
		return domain.BandFail
	}
}

func percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
