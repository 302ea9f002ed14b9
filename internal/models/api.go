package models

import (
	"github.com/google/uuid"
)

// FinalizeJob is the payload queued on attempt completion and consumed by the
// worker pool (websocket event fan-out, result email).
type FinalizeJob struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	TestID         uuid.UUID `json:"test_id"`
	UserID         uuid.UUID `json:"user_id"`
	TestTitle      string    `json:"test_title"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimedOut       bool      `json:"timed_out"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type AttemptCompletedEvent struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	TestID    uuid.UUID `json:"test_id"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Percent   int       `json:"percent"`
	TimedOut  bool      `json:"timed_out"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
