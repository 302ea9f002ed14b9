// Package results derives the per-question breakdown of a completed attempt.
// Pure functions over (Test, TestAttempt); no state, no I/O.
package results

import (
	"math"

	"topaz-backend/internal/models"
)

// QuestionResult annotates one question with the user's answer. UserAnswer is
// nil when the question was left unanswered, which always counts incorrect.
type QuestionResult struct {
	Question   models.Question `json:"question"`
	UserAnswer *int            `json:"user_answer"`
	IsCorrect  bool            `json:"is_correct"`
}

// Breakdown walks the test's questions in order and pairs each with the
// recorded answer from the attempt.
func Breakdown(test models.Test, attempt models.TestAttempt) []QuestionResult {
	out := make([]QuestionResult, 0, len(test.Questions))
	for _, q := range test.Questions {
		r := QuestionResult{Question: q}
		if idx, ok := attempt.Answers[q.ID]; ok {
			answer := idx
			r.UserAnswer = &answer
			r.IsCorrect = idx == q.CorrectAnswer
		}
		out = append(out, r)
	}
	return out
}

// Percentage converts a raw score to a rounded percent. Zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
