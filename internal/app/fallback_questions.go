package app

import "quiz-session-service/internal/domain"

// fallbackQuestions keeps the quiz playable when the remote source is down.
var fallbackQuestions = []domain.Question{
	{
		Text:             "What is the capital of France?",
		CorrectAnswer:    "Paris",
		IncorrectAnswers: []string{"London", "Berlin", "Madrid"},
		Category:         "Geography",
		Difficulty:       domain.DifficultyEasy,
		Type:             domain.AnswerMultiple,
	},
	{
		Text:             "Which planet is known as the Red Planet?",
		CorrectAnswer:    "Mars",
		IncorrectAnswers: []string{"Venus", "Jupiter", "Saturn"},
		Category:         "Science",
		Difficulty:       domain.DifficultyEasy,
		Type:             domain.AnswerMultiple,
	},
	{
		Text:             "What is 2 + 2?",
		CorrectAnswer:    "4",
		IncorrectAnswers: []string{"3", "5", "6"},
		Category:         "Mathematics",
		Difficulty:       domain.DifficultyEasy,
		Type:             domain.AnswerMultiple,
	},
	{
		Text:             "Who wrote 'Romeo and Juliet'?",
		CorrectAnswer:    "William Shakespeare",
		IncorrectAnswers: []string{"Charles Dickens", "Jane Austen", "Mark Twain"},
		Category:         "Literature",
		Difficulty:       domain.DifficultyMedium,
		Type:             domain.AnswerMultiple,
	},
	{
		Text:             "What is the largest ocean on Earth?",
		CorrectAnswer:    "Pacific Ocean",
		IncorrectAnswers: []string{"Atlantic Ocean", "Indian Ocean", "Arctic Ocean"},
		Category:         "Geography",
		Difficulty:       domain.DifficultyMedium,
		Type:             domain.AnswerMultiple,
	},
}

// FallbackQuestions returns a copy of the built-in question set with IDs and points filled in.
func FallbackQuestions() []domain.Question {
	out := make([]domain.Question, 0, len(fallbackQuestions))
	for _, q := range fallbackQuestions {
		q.IncorrectAnswers = append([]string(nil), q.IncorrectAnswers...)
		q.Points = q.Difficulty.Points()
		q.ID = MakeQuestionID(q)
		out = append(out, q)
	}
	return out
}
