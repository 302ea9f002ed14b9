package models

import (
	"time"

	"github.com/google/uuid"
)

// AnswerMap maps a question id to the selected option index. A missing key
// means the question was never answered.
type AnswerMap map[string]int

// Get returns the recorded answer for a question, or -1 when unanswered, so
// scoring never has to special-case missing keys.
func (m AnswerMap) Get(questionID string) int {
	if idx, ok := m[questionID]; ok {
		return idx
	}
	return -1
}

// Clone returns an independent copy of the map.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TestAttempt is the immutable record of one completed test run. Created
// exactly once per session, never mutated afterwards.
type TestAttempt struct {
	ID             uuid.UUID `json:"id"`
	TestID         uuid.UUID `json:"test_id"`
	UserID         uuid.UUID `json:"user_id"`
	Answers        AnswerMap `json:"answers"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
	TimeTaken      int       `json:"time_taken"` // seconds
	TimedOut       bool      `json:"timed_out"`
}

// AttemptStats is an aggregate over a set of attempts, used by dashboards.
type AttemptStats struct {
	Count          int     `json:"count"`
	AveragePercent float64 `json:"average_percent"`
}
